package persistence_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/module"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/persistence"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/pkg/itf"
)

var layouts = []schema.Layout{schema.LayoutLegacy, schema.LayoutModern}

func setupGateway(t *testing.T, layout schema.Layout) (*itf.TestEnvironment, *persistence.Gateway) {
	t.Helper()
	env := itf.NewTestContext().WithLayout(layout).Build(t)
	gw, err := persistence.NewGateway(layout)
	require.NoError(t, err)
	return env, gw
}

func insertItem(t *testing.T, env *itf.TestEnvironment, gw *persistence.Gateway, listID uuid.UUID, parent *referencelist.Item, text string, value int64) referencelist.Item {
	t.Helper()
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	it := referencelist.NewItem(listID, parentID)
	it.Item = text
	it.ItemValue = value
	it.OrderIndex = value
	require.NoError(t, gw.InsertItem(env.Ctx, it))
	return it
}

func TestGateway_RawListOperations(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env, gw := setupGateway(t, layout)
			ctx := env.Ctx

			id, err := gw.InsertList(ctx, "", "Gender", "Person gender")
			require.NoError(t, err)

			found, ok, err := gw.FindListID(ctx, "", "Gender")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, id, found)

			_, ok, err = gw.FindListID(ctx, "Other", "Gender")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, gw.UpdateListDescription(ctx, id, "Gender of a person"))
			nsv := int64(-1)
			require.NoError(t, gw.UpdateListNoSelectionValue(ctx, id, &nsv))

			list, ok, err := gw.FindLast(ctx, configitem.Key{ItemType: referencelist.ItemType, Name: "Gender"})
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "Gender of a person", list.Description)
			require.Equal(t, int64(-1), *list.NoSelectionValue)
			require.Equal(t, 1, list.VersionNo)
			require.Equal(t, configitem.StatusLive, list.VersionStatus)
			require.True(t, list.IsLast)
			require.Equal(t, list.ID, list.OriginID)
		})
	}
}

func TestGateway_ItemOperations(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env, gw := setupGateway(t, layout)
			ctx := env.Ctx

			listID, err := gw.InsertList(ctx, "", "Regions", "")
			require.NoError(t, err)

			north := insertItem(t, env, gw, listID, nil, "North", 1)
			tundra := insertItem(t, env, gw, listID, &north, "Tundra", 11)
			insertItem(t, env, gw, listID, &tundra, "Permafrost", 111)
			insertItem(t, env, gw, listID, nil, "South", 2)

			itemID, ok, err := gw.FindItemID(ctx, listID, 11)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, tundra.ID, itemID)

			require.NoError(t, gw.UpdateItemText(ctx, itemID, "Taiga"))
			require.NoError(t, gw.UpdateItemDescription(ctx, itemID, "cold"))
			require.NoError(t, gw.UpdateItemOrderIndex(ctx, itemID, 7))
			require.Error(t, gw.UpdateItemText(ctx, uuid.New(), "missing"))

			items, err := gw.ListItems(ctx, listID)
			require.NoError(t, err)
			require.Len(t, items, 4)
			tree, err := referencelist.BuildTree(listID, items)
			require.NoError(t, err)
			require.Equal(t, 3, tree.Depth())
			node, ok := tree.Node(tundra.ID)
			require.True(t, ok)
			require.Equal(t, "Taiga", node.Item)
			require.Equal(t, "cold", node.Description)
			require.Equal(t, int64(7), node.OrderIndex)
			require.Equal(t, north.ID, *node.ParentID)

			// Removing a subtree root takes its descendants along.
			require.NoError(t, gw.DeleteItem(ctx, listID, 11))
			items, err = gw.ListItems(ctx, listID)
			require.NoError(t, err)
			require.Len(t, items, 2)

			require.NoError(t, gw.DeleteItems(ctx, listID))
			require.Equal(t, 0, env.Count(t, "reference_list_items"))
		})
	}
}

func TestGateway_DeleteListRemovesEverything(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env, gw := setupGateway(t, layout)
			ctx := env.Ctx

			listID, err := gw.InsertList(ctx, "", "Regions", "")
			require.NoError(t, err)
			parent := insertItem(t, env, gw, listID, nil, "North", 1)
			child := insertItem(t, env, gw, listID, &parent, "Tundra", 11)
			insertItem(t, env, gw, listID, &child, "Permafrost", 111)

			keep, err := gw.InsertList(ctx, "", "Colors", "")
			require.NoError(t, err)
			insertItem(t, env, gw, keep, nil, "Red", 1)

			require.NoError(t, gw.DeleteList(ctx, "", "Regions"))

			_, ok, err := gw.FindListID(ctx, "", "Regions")
			require.NoError(t, err)
			require.False(t, ok)
			require.Equal(t, 1, env.Count(t, "reference_list_items"))
			require.Equal(t, 1, env.Count(t, "reference_lists"))
			if layout == schema.LayoutModern {
				require.Equal(t, 1, env.Count(t, "configuration_items"))
			}
		})
	}
}

func TestGateway_ModuleScopedLists(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env, gw := setupGateway(t, layout)
			ctx := env.Ctx
			modules := persistence.NewModuleRepository()

			core := module.New("Core")
			require.NoError(t, modules.Insert(ctx, core))

			coreID, err := gw.InsertList(ctx, "Core", "Gender", "")
			require.NoError(t, err)
			plainID, err := gw.InsertList(ctx, "", "Gender", "")
			require.NoError(t, err)
			require.NotEqual(t, coreID, plainID)

			list, ok, err := gw.FindLast(ctx, configitem.Key{ItemType: referencelist.ItemType, Module: "Core", Name: "Gender"})
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, coreID, list.ID)
			require.Equal(t, "Core", list.ModuleName)
			require.NotNil(t, list.ModuleID)
			require.Equal(t, core.ID, *list.ModuleID)

			found, ok, err := modules.FindByName(ctx, "Core")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, core.ID, found.ID)
			require.True(t, found.IsEnabled)

			_, ok, err = modules.FindByName(ctx, "Missing")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestModernGateway_VersionOperations(t *testing.T) {
	env, gw := setupGateway(t, schema.LayoutModern)
	ctx := env.Ctx
	key := configitem.Key{ItemType: referencelist.ItemType, Name: "Gender"}

	v1 := referencelist.New("Gender")
	v1.VersionStatus = configitem.StatusLive
	require.NoError(t, gw.InsertVersion(ctx, v1))

	v2 := v1.CloneVersion()
	v2.VersionStatus = configitem.StatusDraft
	// The last flag moves before the successor is written.
	require.NoError(t, gw.SetLast(ctx, v1, false))
	require.NoError(t, gw.InsertVersion(ctx, v2))

	last, ok, err := gw.FindLast(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, v2.ID, last.ID)
	require.Equal(t, 2, last.VersionNo)
	require.Equal(t, v1.ID, *last.ParentVersionID)
	require.Equal(t, v1.OriginID, last.OriginID)

	versions, err := gw.ListVersions(ctx, key)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.False(t, versions[0].IsLast)

	live, err := gw.ListLive(ctx, key)
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, v1.ID, live[0].ID)

	// A second Live version in the lineage is rejected by the database.
	require.Error(t, gw.UpdateStatus(ctx, v2, configitem.StatusLive))

	require.NoError(t, gw.UpdateStatus(ctx, v1, configitem.StatusRetired))
	require.NoError(t, gw.UpdateStatus(ctx, v2, configitem.StatusLive))

	require.NoError(t, gw.DeleteVersion(ctx, v2))
	_, ok, err = gw.FindByID(ctx, v2.ID)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, env.Count(t, "configuration_items"))
}

func TestLegacyGateway_VersionRestrictions(t *testing.T) {
	env, gw := setupGateway(t, schema.LayoutLegacy)
	ctx := env.Ctx

	draft := referencelist.New("Gender")
	draft.VersionStatus = configitem.StatusDraft
	require.ErrorIs(t, gw.InsertVersion(ctx, draft), configitem.ErrLayoutRestriction)

	live := referencelist.New("Gender")
	live.VersionStatus = configitem.StatusLive
	require.NoError(t, gw.InsertVersion(ctx, live))
	require.NoError(t, gw.SetLast(ctx, live, false))
	require.ErrorIs(t, gw.UpdateStatus(ctx, live, configitem.StatusReady), configitem.ErrLayoutRestriction)

	insertItem(t, env, gw, live.ID, nil, "Male", 1)
	require.NoError(t, gw.UpdateStatus(ctx, live, configitem.StatusRetired))
	require.Equal(t, 0, env.Count(t, "reference_lists"))
	require.Equal(t, 0, env.Count(t, "reference_list_items"))
}
