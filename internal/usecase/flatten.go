package usecase

import "pippin/internal/entity"

// Flatten lists every node of the forest in pre-order, parents before their
// descendants and siblings in original order. Nil entries are skipped.
func Flatten(roots []*entity.Node) []*entity.Node {
	out := make([]*entity.Node, 0, len(roots))

	var walk func(nodes []*entity.Node)
	walk = func(nodes []*entity.Node) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(roots)

	return out
}
