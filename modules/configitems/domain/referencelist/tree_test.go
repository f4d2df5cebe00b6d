package referencelist_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

func item(listID uuid.UUID, parent *referencelist.Item, name string, order int64) referencelist.Item {
	var parentID *uuid.UUID
	if parent != nil {
		id := parent.ID
		parentID = &id
	}
	it := referencelist.NewItem(listID, parentID)
	it.Item = name
	it.OrderIndex = order
	return it
}

func TestBuildTree_WalkIsDepthFirstAndOrdered(t *testing.T) {
	listID := uuid.New()
	b := item(listID, nil, "B", 2)
	a := item(listID, nil, "A", 1)
	a2 := item(listID, &a, "A2", 2)
	a1 := item(listID, &a, "A1", 1)
	a1x := item(listID, &a1, "A1x", 0)

	tree, err := referencelist.BuildTree(listID, []referencelist.Item{b, a2, a1x, a, a1})
	require.NoError(t, err)
	require.Equal(t, 5, tree.Len())
	require.Equal(t, 3, tree.Depth())

	var visited []string
	require.NoError(t, tree.Walk(func(it referencelist.Item, depth int) error {
		visited = append(visited, it.Item)
		return nil
	}))
	require.Equal(t, []string{"A", "A1", "A1x", "A2", "B"}, visited)
}

func TestBuildTree_RejectsCycle(t *testing.T) {
	listID := uuid.New()
	a := item(listID, nil, "A", 0)
	b := item(listID, &a, "B", 0)
	bID := b.ID
	a.ParentID = &bID

	_, err := referencelist.BuildTree(listID, []referencelist.Item{a, b})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestBuildTree_RejectsSelfParent(t *testing.T) {
	listID := uuid.New()
	a := item(listID, nil, "A", 0)
	self := a.ID
	a.ParentID = &self

	_, err := referencelist.BuildTree(listID, []referencelist.Item{a})
	require.Error(t, err)
}

func TestBuildTree_RejectsMissingParentAndForeignItems(t *testing.T) {
	listID := uuid.New()
	ghost := uuid.New()
	orphan := referencelist.NewItem(listID, &ghost)

	_, err := referencelist.BuildTree(listID, []referencelist.Item{orphan})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing parent")

	foreign := referencelist.NewItem(uuid.New(), nil)
	_, err = referencelist.BuildTree(listID, []referencelist.Item{foreign})
	require.Error(t, err)
}

func TestTree_CloneItemsRemapsParents(t *testing.T) {
	listID := uuid.New()
	a := item(listID, nil, "A", 0)
	a1 := item(listID, &a, "A1", 0)

	tree, err := referencelist.BuildTree(listID, []referencelist.Item{a, a1})
	require.NoError(t, err)

	target := uuid.New()
	clones := tree.CloneItems(target)
	require.Len(t, clones, 2)
	require.Nil(t, clones[0].ParentID)
	require.NotEqual(t, a.ID, clones[0].ID)
	require.Equal(t, target, clones[1].ReferenceListID)
	require.Equal(t, clones[0].ID, *clones[1].ParentID)

	_, err = referencelist.BuildTree(target, clones)
	require.NoError(t, err)
}

func TestReferenceList_CloneVersion(t *testing.T) {
	list := referencelist.New("Gender")
	nsv := int64(-1)
	list.NoSelectionValue = &nsv
	list.Items = []referencelist.Item{referencelist.NewItem(list.ID, nil)}

	next := list.CloneVersion()
	require.Equal(t, 2, next.VersionNo)
	require.Equal(t, list.OriginID, next.OriginID)
	require.Equal(t, referencelist.ItemType, next.ItemType)
	require.Equal(t, int64(-1), *next.NoSelectionValue)
	require.NotSame(t, list.NoSelectionValue, next.NoSelectionValue)
	require.Empty(t, next.Items)
}
