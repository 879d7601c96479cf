package usecase

import "pippin/internal/entity"

type SimplifyOptions struct {
	InteractiveOnly bool
	// MaxDepth is inclusive and counted on the raw tree, roots at 0. Nil means unlimited.
	MaxDepth      *int
	IncludeHidden bool
}

type outcomeKind int

const (
	outcomeDropped outcomeKind = iota
	outcomeReplaced
	outcomeKept
)

// outcome is the result of folding one subtree. Replaced carries a surviving
// descendant that takes the node's place in its parent.
type outcome struct {
	kind outcomeKind
	node entity.SimplifiedNode
}

func dropped() outcome {
	return outcome{kind: outcomeDropped}
}

func replaced(n entity.SimplifiedNode) outcome {
	return outcome{kind: outcomeReplaced, node: n}
}

func kept(n entity.SimplifiedNode) outcome {
	return outcome{kind: outcomeKept, node: n}
}

// Simplify compacts a raw snapshot into the tree shown to callers.
func Simplify(tree []*entity.Node, opts SimplifyOptions) []entity.SimplifiedNode {
	s := simplifier{opts: opts}

	return s.foldChildren(tree, 0)
}

type simplifier struct {
	opts SimplifyOptions
}

func (s simplifier) fold(node *entity.Node, depth int) outcome {
	if node == nil || s.beyondDepth(depth) {
		return dropped()
	}

	children := s.foldChildren(node.Children, depth+1)

	if !s.opts.IncludeHidden && isHiddenLeaf(node, children) {
		return dropped()
	}
	if s.opts.InteractiveOnly && isNonInteractiveLeaf(node, children) {
		return dropped()
	}
	if child, ok := collapseWrapper(node, children); ok {
		return replaced(child)
	}

	return kept(encode(node, children))
}

func (s simplifier) foldChildren(nodes []*entity.Node, depth int) []entity.SimplifiedNode {
	var out []entity.SimplifiedNode
	for _, n := range nodes {
		if o := s.fold(n, depth); o.kind != outcomeDropped {
			out = append(out, o.node)
		}
	}

	return out
}

func (s simplifier) beyondDepth(depth int) bool {
	return s.opts.MaxDepth != nil && depth > *s.opts.MaxDepth
}

// isHiddenLeaf: explicitly invisible and nothing survived below it.
func isHiddenLeaf(node *entity.Node, children []entity.SimplifiedNode) bool {
	return node.IsHidden() && len(children) == 0
}

// isNonInteractiveLeaf: neither interactive nor structural, with nothing below it.
func isNonInteractiveLeaf(node *entity.Node, children []entity.SimplifiedNode) bool {
	return !node.CanonicalRole().IsMeaningful() && len(children) == 0
}

// collapseWrapper hoists the only child of an anonymous, non meaningful container.
func collapseWrapper(node *entity.Node, children []entity.SimplifiedNode) (entity.SimplifiedNode, bool) {
	if len(children) != 1 {
		return entity.SimplifiedNode{}, false
	}
	if node.Label != "" || node.Identifier != "" || node.Value != "" {
		return entity.SimplifiedNode{}, false
	}
	if node.CanonicalRole().IsMeaningful() {
		return entity.SimplifiedNode{}, false
	}

	return children[0], true
}

func encode(node *entity.Node, children []entity.SimplifiedNode) entity.SimplifiedNode {
	out := entity.SimplifiedNode{
		Type:     string(node.CanonicalRole()),
		ID:       node.Identifier,
		Label:    node.Label,
		Value:    node.Value,
		Children: children,
	}
	if node.Frame != nil {
		out.Frame = node.Frame.String()
	}

	return out
}

// FlattenSimplified is the flat listing used by "inspect --flat": every node in
// pre-order without children, filtered by role only. Hidden nodes are listed.
func FlattenSimplified(tree []*entity.Node, opts SimplifyOptions) []entity.SimplifiedNode {
	var out []entity.SimplifiedNode
	for _, n := range Flatten(tree) {
		if opts.InteractiveOnly && !n.CanonicalRole().IsInteractive() {
			continue
		}
		out = append(out, encode(n, nil))
	}

	return out
}
