package spreadsheet_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/spreadsheet"
)

func TestWriteReferenceList(t *testing.T) {
	order := int64(7)
	list := &distribution.DistributedReferenceList{
		Name:          "Regions",
		Label:         "World regions",
		ModuleName:    "Geo",
		VersionStatus: configitem.StatusLive,
		Items: []distribution.DistributedReferenceListItem{
			{Item: "Europe", ItemValue: 100, OrderIndex: &order, ChildItems: []distribution.DistributedReferenceListItem{
				{Item: "Germany", ItemValue: 110, Description: "DE"},
			}},
			{Item: "Asia", ItemValue: 200},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteReferenceList(&buf, list))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.Equal(t, []string{"List", "Items"}, f.GetSheetList())

	header, err := f.GetRows("List")
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Regions"}, header[0])
	require.Equal(t, []string{"Version Status", "Live"}, header[4])

	rows, err := f.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "Item", rows[0][0])
	require.Equal(t, []string{"Europe", "100", "", "1", "7"}, rows[1])
	require.Equal(t, []string{"Germany", "110", "100", "2", "", "DE"}, rows[2])
	require.Equal(t, []string{"Asia", "200", "", "1"}, rows[3])
}
