package usecase

import (
	"encoding/json"
	"pippin/internal/entity"
	"testing"

	"github.com/stretchr/testify/require"
)

func depth(d int) *int {
	return &d
}

func TestSimplifyMaxDepthZero(t *testing.T) {
	tree := []*entity.Node{
		node("Window", "main", "", frame(0, 0, 375, 812),
			node("Button", "ok", "OK", frame(10, 10, 50, 20)),
		),
	}

	out := Simplify(tree, SimplifyOptions{MaxDepth: depth(0)})

	require.Len(t, out, 1)
	require.Equal(t, "window", out[0].Type)
	require.Nil(t, out[0].Children)

	raw, err := json.Marshal(out[0])
	require.NoError(t, err)
	require.NotContains(t, string(raw), "children")
}

func TestSimplifyInteractiveOnlyDropsOtherLeaf(t *testing.T) {
	tree := []*entity.Node{
		node("Window", "", "", nil,
			node("Other", "", "", nil),
			node("Button", "", "Go", nil),
		),
	}

	out := Simplify(tree, SimplifyOptions{InteractiveOnly: true})

	require.Equal(t, []entity.SimplifiedNode{{
		Type:     "window",
		Children: []entity.SimplifiedNode{{Type: "button", Label: "Go"}},
	}}, out)
}

func TestSimplifyInteractiveOnlyKeepsStructuralLeaf(t *testing.T) {
	tree := []*entity.Node{node("NavigationBar", "", "", nil)}

	out := Simplify(tree, SimplifyOptions{InteractiveOnly: true})

	require.Equal(t, []entity.SimplifiedNode{{Type: "navigationbar"}}, out)
}

func TestSimplifyHiddenLeafPruning(t *testing.T) {
	hiddenLeaf := node("Button", "", "Ghost", nil)
	hiddenLeaf.Visible = hidden()

	hiddenParent := node("ScrollView", "", "", nil, node("Button", "", "Shown", nil))
	hiddenParent.Visible = hidden()

	tree := []*entity.Node{node("Window", "", "", nil, hiddenLeaf, hiddenParent)}

	out := Simplify(tree, SimplifyOptions{})
	require.Len(t, out[0].Children, 1)
	require.Equal(t, "scrollview", out[0].Children[0].Type)

	withHidden := Simplify(tree, SimplifyOptions{IncludeHidden: true})
	require.Len(t, withHidden[0].Children, 2)
}

func TestSimplifyCollapsesWrappers(t *testing.T) {
	tree := []*entity.Node{
		node("Other", "", "", nil,
			node("Group", "", "", nil,
				node("Button", "deep", "", nil),
			),
		),
	}

	out := Simplify(tree, SimplifyOptions{})

	require.Equal(t, []entity.SimplifiedNode{{Type: "button", ID: "deep"}}, out)
}

func TestSimplifyKeepsLabelledOrMeaningfulWrappers(t *testing.T) {
	labelled := node("Other", "", "Card", nil, node("Button", "b", "", nil))
	table := node("Table", "", "", nil, node("Cell", "c", "", nil))

	out := Simplify([]*entity.Node{labelled, table}, SimplifyOptions{})

	require.Len(t, out, 2)
	require.Equal(t, "other", out[0].Type)
	require.Equal(t, "Card", out[0].Label)
	require.Equal(t, "table", out[1].Type)
	require.Len(t, out[1].Children, 1)
}

// Depth is measured on the raw tree: a grandchild promoted by a collapsed
// wrapper is still cut off at its original depth.
func TestSimplifyDepthCountedBeforeCollapse(t *testing.T) {
	tree := []*entity.Node{
		node("Window", "", "", nil,
			node("Other", "", "", nil,
				node("Button", "b", "", nil),
			),
		),
	}

	out := Simplify(tree, SimplifyOptions{MaxDepth: depth(1)})
	require.Equal(t, []entity.SimplifiedNode{{
		Type:     "window",
		Children: []entity.SimplifiedNode{{Type: "other"}},
	}}, out)

	out = Simplify(tree, SimplifyOptions{MaxDepth: depth(2)})
	require.Equal(t, []entity.SimplifiedNode{{
		Type:     "window",
		Children: []entity.SimplifiedNode{{Type: "button", ID: "b"}},
	}}, out)
}

func TestSimplifyEncodesFrameAndValue(t *testing.T) {
	field := node("TextField", "email", "Email", frame(16, 100.5, 343, 44))
	field.Value = "a@b.c"

	out := Simplify([]*entity.Node{field}, SimplifyOptions{})

	require.Equal(t, entity.SimplifiedNode{
		Type:  "textfield",
		ID:    "email",
		Label: "Email",
		Value: "a@b.c",
		Frame: "16,100.5,343,44",
	}, out[0])
}

func TestFlattenSimplified(t *testing.T) {
	tree := []*entity.Node{
		node("Window", "", "", nil,
			node("Other", "", "", nil,
				node("Button", "b", "", nil),
			),
			node("StaticText", "", "Hi", nil),
		),
	}

	all := FlattenSimplified(tree, SimplifyOptions{})
	require.Len(t, all, 4)

	interactive := FlattenSimplified(tree, SimplifyOptions{InteractiveOnly: true})
	require.Equal(t, []entity.SimplifiedNode{
		{Type: "button", ID: "b"},
		{Type: "statictext", Label: "Hi"},
	}, interactive)
}

func TestFlattenSimplifiedListsHiddenNodes(t *testing.T) {
	offscreen := node("Button", "later", "", nil)
	offscreen.Visible = hidden()

	tree := []*entity.Node{node("Window", "", "", nil, node("Button", "now", "", nil), offscreen)}

	flat := FlattenSimplified(tree, SimplifyOptions{InteractiveOnly: true, IncludeHidden: false})
	require.Equal(t, []entity.SimplifiedNode{
		{Type: "button", ID: "now"},
		{Type: "button", ID: "later"},
	}, flat)

	nested := Simplify(tree, SimplifyOptions{InteractiveOnly: true, IncludeHidden: false})
	require.Len(t, nested, 1)
	require.Len(t, nested[0].Children, 1)
}

func TestRuleHelpers(t *testing.T) {
	leaf := node("Other", "", "", nil)
	leaf.Visible = hidden()
	child := []entity.SimplifiedNode{{Type: "button"}}

	require.True(t, isHiddenLeaf(leaf, nil))
	require.False(t, isHiddenLeaf(leaf, child))
	require.True(t, isNonInteractiveLeaf(leaf, nil))
	require.False(t, isNonInteractiveLeaf(node("Alert", "", "", nil), nil))

	promoted, ok := collapseWrapper(node("Group", "", "", nil), child)
	require.True(t, ok)
	require.Equal(t, child[0], promoted)

	_, ok = collapseWrapper(node("Group", "", "", nil), append(child, child[0]))
	require.False(t, ok)
}
