package services_test

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/modules/configitems/services"
)

type foreignItem struct{}

func (foreignItem) ConfigItemType() string   { return "entity-config" }
func (foreignItem) ConfigItemName() string   { return "Person" }
func (foreignItem) ConfigModuleName() string { return "" }

func TestReferenceListImporter_GenderIntoEmptyTarget(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env := setup(t, layout)

			list, err := env.Module.Importer.ImportItem(env.Ctx, genderList(configitem.StatusLive), services.ImportContext{})
			require.NoError(t, err)
			require.Equal(t, 1, list.VersionNo)
			require.Equal(t, configitem.StatusLive, list.VersionStatus)
			require.True(t, list.IsLast)
			require.Equal(t, list.ID, list.OriginID)
			require.Nil(t, list.ModuleID)

			stored, ok, err := env.Module.Gateway.FindLast(env.Ctx, listKey("", "Gender"))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, list.ID, stored.ID)
			require.Equal(t, 1, stored.VersionNo)
			require.Equal(t, configitem.StatusLive, stored.VersionStatus)

			items, err := env.Module.Gateway.ListItems(env.Ctx, list.ID)
			require.NoError(t, err)
			require.Len(t, items, 2)
			values := []int64{items[0].ItemValue, items[1].ItemValue}
			sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
			require.Equal(t, []int64{1, 2}, values)
			for _, it := range items {
				require.Nil(t, it.ParentID)
			}

			require.Equal(t, 0, env.Count(t, "modules"))
			require.Equal(t, 1, env.Count(t, "reference_lists"))
			if layout == schema.LayoutModern {
				require.Equal(t, 1, env.Count(t, "configuration_items"))
			}
		})
	}
}

func TestReferenceListImporter_LiveImportRetiresPreviousLive(t *testing.T) {
	env := setup(t, schema.LayoutModern)
	ctx := env.Ctx

	first, err := env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusLive), services.ImportContext{})
	require.NoError(t, err)

	next := genderList(configitem.StatusLive)
	next.Label = "Sex"
	second, err := env.Module.Importer.ImportItem(ctx, next, services.ImportContext{})
	require.NoError(t, err)

	require.Equal(t, 2, second.VersionNo)
	require.Equal(t, first.OriginID, second.OriginID)
	require.NotNil(t, second.ParentVersionID)
	require.Equal(t, first.ID, *second.ParentVersionID)
	require.Equal(t, "Sex", second.Label)

	versions := requireVersions(t, env, "", "Gender")
	require.Len(t, versions, 2)
	require.Equal(t, 1, liveCount(versions))
	require.Equal(t, configitem.StatusRetired, versions[0].VersionStatus)
	require.False(t, versions[0].IsLast)
	require.Equal(t, configitem.StatusLive, versions[1].VersionStatus)
	require.True(t, versions[1].IsLast)

	// Retired versions keep their items.
	require.Equal(t, 4, env.Count(t, "reference_list_items"))
}

func TestReferenceListImporter_LegacyLiveImportReplacesRow(t *testing.T) {
	env := setup(t, schema.LayoutLegacy)
	ctx := env.Ctx

	_, err := env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusLive), services.ImportContext{})
	require.NoError(t, err)

	next := genderList(configitem.StatusLive)
	next.Items = append(next.Items, distribution.DistributedReferenceListItem{Item: "Other", ItemValue: 3})
	importID := uuid.New()
	replaced, err := env.Module.Importer.ImportItem(ctx, next, services.ImportContext{ImportResult: &importID})
	require.NoError(t, err)

	versions := requireVersions(t, env, "", "Gender")
	require.Len(t, versions, 1)
	require.Equal(t, configitem.StatusLive, versions[0].VersionStatus)

	stored := versions[0]
	require.Equal(t, stored.ID, replaced.ID)
	require.Equal(t, 1, replaced.VersionNo)
	require.Equal(t, stored.VersionNo, replaced.VersionNo)
	require.Equal(t, stored.OriginID, replaced.OriginID)
	require.Equal(t, replaced.ID, replaced.OriginID)
	require.Nil(t, replaced.ParentVersionID)
	require.Nil(t, replaced.CreatedByImport)
	require.True(t, replaced.IsLast)
	require.Equal(t, 1, env.Count(t, "reference_lists"))
	require.Equal(t, 3, env.Count(t, "reference_list_items"))
}

func TestReferenceListImporter_LegacyRejectsUnpublishedStatus(t *testing.T) {
	env := setup(t, schema.LayoutLegacy)

	_, err := env.Module.Importer.ImportItem(env.Ctx, genderList(configitem.StatusDraft), services.ImportContext{})
	require.ErrorIs(t, err, services.ErrPolicyViolation)
	require.Equal(t, "CI_LAYOUT_RESTRICTION", services.Code(err))
	require.Equal(t, 0, env.Count(t, "reference_lists"))
}

func TestReferenceListImporter_DraftImportedTwiceLeavesOneVersion(t *testing.T) {
	env := setup(t, schema.LayoutModern)
	ctx := env.Ctx

	_, err := env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusDraft), services.ImportContext{})
	require.NoError(t, err)
	second, err := env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusDraft), services.ImportContext{})
	require.NoError(t, err)

	versions := requireVersions(t, env, "", "Gender")
	require.Len(t, versions, 1)
	require.Equal(t, second.ID, versions[0].ID)
	require.Equal(t, 1, versions[0].VersionNo)
	require.Equal(t, configitem.StatusDraft, versions[0].VersionStatus)
	require.True(t, versions[0].IsLast)
	require.Equal(t, 2, env.Count(t, "reference_list_items"))
}

func TestReferenceListImporter_DraftOnTopOfLiveReplacesPendingDraft(t *testing.T) {
	env := setup(t, schema.LayoutModern)
	ctx := env.Ctx

	live, err := env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusLive), services.ImportContext{})
	require.NoError(t, err)
	_, err = env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusDraft), services.ImportContext{})
	require.NoError(t, err)
	draft, err := env.Module.Importer.ImportItem(ctx, genderList(configitem.StatusDraft), services.ImportContext{})
	require.NoError(t, err)

	versions := requireVersions(t, env, "", "Gender")
	require.Len(t, versions, 2)
	require.Equal(t, live.ID, versions[0].ID)
	require.Equal(t, configitem.StatusLive, versions[0].VersionStatus)
	require.False(t, versions[0].IsLast)
	require.Equal(t, draft.ID, versions[1].ID)
	require.Equal(t, 2, versions[1].VersionNo)
	require.True(t, versions[1].IsLast)
}

func TestReferenceListImporter_StatusOverride(t *testing.T) {
	env := setup(t, schema.LayoutModern)

	list, err := env.Module.Importer.ImportItem(env.Ctx, genderList(configitem.StatusLive), services.ImportContext{
		ImportStatusAs: statusPtr(configitem.StatusReady),
	})
	require.NoError(t, err)
	require.Equal(t, configitem.StatusReady, list.VersionStatus)
}

func TestReferenceListImporter_StampsProvenance(t *testing.T) {
	env := setup(t, schema.LayoutModern)
	importID := uuid.New()

	list, err := env.Module.Importer.ImportItem(env.Ctx, genderList(configitem.StatusLive), services.ImportContext{
		ImportResult: &importID,
	})
	require.NoError(t, err)

	stored, ok, err := env.Module.Gateway.FindByID(env.Ctx, list.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, stored.CreatedByImport)
	require.Equal(t, importID, *stored.CreatedByImport)
}

func TestReferenceListImporter_RejectsInvalidInput(t *testing.T) {
	env := setup(t, schema.LayoutModern)
	importer := env.Module.Importer

	cases := []struct {
		name string
		item distribution.Item
		code string
	}{
		{name: "nil", item: nil, code: "CI_ITEM_REQUIRED"},
		{name: "typed nil", item: (*distribution.DistributedReferenceList)(nil), code: "CI_ITEM_REQUIRED"},
		{name: "foreign type", item: foreignItem{}, code: "CI_UNSUPPORTED_ITEM"},
		{name: "no status", item: genderList(configitem.StatusUnknown), code: "CI_STATUS_REQUIRED"},
		{name: "no name", item: &distribution.DistributedReferenceList{VersionStatus: configitem.StatusLive}, code: "CI_INVALID_ITEM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := importer.ImportItem(env.Ctx, tc.item, services.ImportContext{})
			require.ErrorIs(t, err, services.ErrValidation)
			require.Equal(t, tc.code, services.Code(err))
		})
	}
	require.Equal(t, 0, env.Count(t, "configuration_items"))
}

func TestReferenceListImporter_MissingModule(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env := setup(t, layout)
			src := genderList(configitem.StatusLive)
			src.ModuleName = "Crm"

			_, err := env.Module.Importer.ImportItem(env.Ctx, src, services.ImportContext{})
			require.ErrorIs(t, err, services.ErrMissingDependency)
			require.Equal(t, "CI_MODULE_MISSING", services.Code(err))
			require.Contains(t, err.Error(), "Crm")

			require.Equal(t, 0, env.Count(t, "modules"))
			require.Equal(t, 0, env.Count(t, "reference_lists"))
			require.Equal(t, 0, env.Count(t, "reference_list_items"))
		})
	}
}

func TestReferenceListImporter_CreatesMissingModuleOnce(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env := setup(t, layout)
			src := genderList(configitem.StatusLive)
			src.ModuleName = "Crm"
			ictx := services.ImportContext{CreateModules: true}

			list, err := env.Module.Importer.ImportItem(env.Ctx, src, ictx)
			require.NoError(t, err)
			require.Equal(t, "Crm", list.ModuleName)
			require.NotNil(t, list.ModuleID)

			_, err = env.Module.Importer.ImportItem(env.Ctx, src, ictx)
			require.NoError(t, err)

			require.Equal(t, 1, env.Count(t, "modules"))
			mod, ok, err := env.Module.Modules.FindByName(env.Ctx, "Crm")
			require.NoError(t, err)
			require.True(t, ok)
			require.True(t, mod.IsEnabled)

			stored, ok, err := env.Module.Gateway.FindLast(env.Ctx, listKey("Crm", "Gender"))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "Crm", stored.ModuleName)

			_, ok, err = env.Module.Gateway.FindLast(env.Ctx, listKey("", "Gender"))
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestReferenceListImporter_ImportsItemForest(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			env := setup(t, layout)

			list, err := env.Module.Importer.ImportItem(env.Ctx, regionsList(configitem.StatusLive), services.ImportContext{})
			require.NoError(t, err)
			require.Len(t, list.Items, 10)

			items, err := env.Module.Gateway.ListItems(env.Ctx, list.ID)
			require.NoError(t, err)
			require.Len(t, items, 10)

			tree, err := referencelist.BuildTree(list.ID, items)
			require.NoError(t, err)
			require.Equal(t, 3, tree.Depth())
			require.Len(t, tree.Roots(), 2)

			byValue := make(map[int64]referencelist.Item, len(items))
			for _, it := range items {
				byValue[it.ItemValue] = it
			}
			require.Equal(t, int64(5), byValue[100].OrderIndex)
			require.Equal(t, int64(7), byValue[200].OrderIndex)
			require.Equal(t, int64(0), byValue[110].OrderIndex)
			require.Equal(t, int64(1), byValue[120].OrderIndex)

			parentOf := func(value int64) int64 {
				it := byValue[value]
				require.NotNil(t, it.ParentID)
				for _, candidate := range items {
					if candidate.ID == *it.ParentID {
						return candidate.ItemValue
					}
				}
				t.Fatalf("parent of %d not found", value)
				return 0
			}
			require.Nil(t, byValue[100].ParentID)
			require.Nil(t, byValue[200].ParentID)
			require.Equal(t, int64(100), parentOf(110))
			require.Equal(t, int64(100), parentOf(120))
			require.Equal(t, int64(110), parentOf(111))
			require.Equal(t, int64(220), parentOf(221))
		})
	}
}

func TestReferenceListImporter_DepthLimit(t *testing.T) {
	env := setupWithOptions(t, schema.LayoutModern, configitems.Options{MaxItemDepth: 2})

	_, err := env.Module.Importer.ImportItem(env.Ctx, regionsList(configitem.StatusLive), services.ImportContext{})
	require.ErrorIs(t, err, services.ErrValidation)
	require.Equal(t, "CI_ITEMS_TOO_DEEP", services.Code(err))
	require.Equal(t, 0, env.Count(t, "configuration_items"))
	require.Equal(t, 0, env.Count(t, "reference_list_items"))

	_, err = env.Module.Importer.ImportItem(env.Ctx, genderList(configitem.StatusLive), services.ImportContext{})
	require.NoError(t, err)
}
