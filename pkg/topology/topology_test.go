package topology

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/node-scheduler/pkg/nodeset"
)

func twoLeafTree() *Tree {
	return &Tree{Switches: []Switch{
		0: {Name: "leaf0", Level: 0, Parent: 2, NodeBitmap: nodeset.New(0, 1, 2, 3)},
		1: {Name: "leaf1", Level: 0, Parent: 2, NodeBitmap: nodeset.New(4, 5, 6, 7)},
		2: {Name: "root", Level: 1, Parent: 2, NodeBitmap: nodeset.New(0, 1, 2, 3, 4, 5, 6, 7)},
	}}
}

func TestRootIndexAndLeaves(t *testing.T) {
	tree := twoLeafTree()
	require.Equal(t, 2, tree.RootIndex())
	require.ElementsMatch(t, []int{0, 1}, tree.Leaves())
}

func TestAncestorsAndCommonAncestor(t *testing.T) {
	tree := twoLeafTree()
	require.Equal(t, []int{0, 2}, tree.Ancestors(0))
	require.Equal(t, 2, tree.CommonAncestor(0, 1))
	require.Equal(t, 0, tree.CommonAncestor(0, 0))
}

func TestSubtree(t *testing.T) {
	tree := twoLeafTree()
	require.ElementsMatch(t, []int{0, 1, 2}, tree.Subtree(2))
	require.ElementsMatch(t, []int{0}, tree.Subtree(0))
}

func TestBlockGrouping(t *testing.T) {
	bt := &BlockTable{
		NodeCnt: 4,
		Levels:  0b1010, // exponents 1 and 3 allowed
		BaseBlocks: []BaseBlock{
			{Name: "bb0", NodeBitmap: nodeset.New(0, 1, 2, 3)},
			{Name: "bb1", NodeBitmap: nodeset.New(4, 5, 6, 7)},
			{Name: "bb2", NodeBitmap: nodeset.New(8, 9, 10, 11)},
			{Name: "bb3", NodeBitmap: nodeset.New(12, 13, 14, 15)},
		},
	}

	require.True(t, bt.HasLevel(1))
	require.False(t, bt.HasLevel(2))
	require.Equal(t, 1, bt.SmallestAllowedLevel(1))
	require.Equal(t, 3, bt.SmallestAllowedLevel(2))

	blocks := bt.GroupBlocks(1)
	require.Len(t, blocks, 2)
	require.Equal(t, 8, blocks[0].NodeBitmap.Count())
}
