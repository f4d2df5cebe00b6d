package services_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/pkg/itf"
)

var layouts = []schema.Layout{schema.LayoutLegacy, schema.LayoutModern}

func setup(t *testing.T, layout schema.Layout) *itf.TestEnvironment {
	t.Helper()
	return itf.NewTestContext().WithLayout(layout).Build(t)
}

func setupWithOptions(t *testing.T, layout schema.Layout, opts configitems.Options) *itf.TestEnvironment {
	t.Helper()
	return itf.NewTestContext().WithLayout(layout).WithOptions(opts).Build(t)
}

func statusPtr(s configitem.VersionStatus) *configitem.VersionStatus {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func genderList(status configitem.VersionStatus) *distribution.DistributedReferenceList {
	return &distribution.DistributedReferenceList{
		Name:          "Gender",
		Label:         "Gender",
		VersionStatus: status,
		Items: []distribution.DistributedReferenceListItem{
			{Item: "Male", ItemValue: 1},
			{Item: "Female", ItemValue: 2},
		},
	}
}

// regionsList holds 2 roots with 2 children each and 1 grandchild under every child.
func regionsList(status configitem.VersionStatus) *distribution.DistributedReferenceList {
	leaf := func(name string, value int64) distribution.DistributedReferenceListItem {
		return distribution.DistributedReferenceListItem{Item: name, ItemValue: value}
	}
	return &distribution.DistributedReferenceList{
		Name:          "Regions",
		Label:         "Regions",
		VersionStatus: status,
		Items: []distribution.DistributedReferenceListItem{
			{
				Item: "Europe", ItemValue: 100, OrderIndex: int64Ptr(5),
				ChildItems: []distribution.DistributedReferenceListItem{
					{Item: "Germany", ItemValue: 110, ChildItems: []distribution.DistributedReferenceListItem{leaf("Berlin", 111)}},
					{Item: "France", ItemValue: 120, ChildItems: []distribution.DistributedReferenceListItem{leaf("Paris", 121)}},
				},
			},
			{
				Item: "Asia", ItemValue: 200, OrderIndex: int64Ptr(7),
				ChildItems: []distribution.DistributedReferenceListItem{
					{Item: "Japan", ItemValue: 210, ChildItems: []distribution.DistributedReferenceListItem{leaf("Tokyo", 211)}},
					{Item: "India", ItemValue: 220, ChildItems: []distribution.DistributedReferenceListItem{leaf("Delhi", 221)}},
				},
			},
		},
	}
}

func listKey(moduleName, name string) configitem.Key {
	return configitem.Key{ItemType: referencelist.ItemType, Module: moduleName, Name: name}
}

func requireVersions(t *testing.T, env *itf.TestEnvironment, moduleName, name string) []*referencelist.ReferenceList {
	t.Helper()
	versions, err := env.Module.Gateway.ListVersions(env.Ctx, listKey(moduleName, name))
	require.NoError(t, err)
	return versions
}

func liveCount(versions []*referencelist.ReferenceList) int {
	n := 0
	for _, v := range versions {
		if v.VersionStatus == configitem.StatusLive {
			n++
		}
	}
	return n
}
