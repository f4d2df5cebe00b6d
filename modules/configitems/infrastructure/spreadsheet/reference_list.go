package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
)

const (
	listSheet  = "List"
	itemsSheet = "Items"
)

var itemsHeader = []string{
	"Item",
	"Item Value",
	"Parent Value",
	"Level",
	"Order Index",
	"Description",
	"Color",
	"Icon",
	"Short Alias",
}

var itemsColumnWidths = []float64{30, 12, 12, 8, 12, 40, 10, 10, 12}

// WriteReferenceList renders list as a workbook: a List sheet with the header fields
// and an Items sheet with one row per item, parents before their children.
func WriteReferenceList(w io.Writer, list *distribution.DistributedReferenceList) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", listSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	index, err := f.NewSheet(itemsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeListSheet(f, list, headerStyle); err != nil {
		return err
	}
	if err := writeItemsSheet(f, list.Items, headerStyle); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeListSheet(f *excelize.File, list *distribution.DistributedReferenceList, headerStyle int) error {
	var noSelection any
	if list.NoSelectionValue != nil {
		noSelection = *list.NoSelectionValue
	}
	rows := [][]any{
		{"Name", list.Name},
		{"Label", list.Label},
		{"Module", list.ModuleName},
		{"Description", list.Description},
		{"Version Status", list.VersionStatus.String()},
		{"No Selection Value", noSelection},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(listSheet, cell, &row); err != nil {
			return fmt.Errorf("set list row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(listSheet, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}
	return f.SetColWidth(listSheet, "A", "B", 24)
}

func writeItemsSheet(f *excelize.File, items []distribution.DistributedReferenceListItem, headerStyle int) error {
	header := make([]any, len(itemsHeader))
	for i, h := range itemsHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(itemsSheet, "A1", &header); err != nil {
		return fmt.Errorf("set header row: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(itemsHeader), 1)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(itemsSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}
	for i, width := range itemsColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("convert column number: %w", err)
		}
		if err := f.SetColWidth(itemsSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	row := 2
	var walk func(items []distribution.DistributedReferenceListItem, parent *int64, level int) error
	walk = func(items []distribution.DistributedReferenceListItem, parent *int64, level int) error {
		for _, item := range items {
			values := []any{item.Item, item.ItemValue, nil, level, nil, item.Description, item.Color, item.Icon, item.ShortAlias}
			if parent != nil {
				values[2] = *parent
			}
			if item.OrderIndex != nil {
				values[4] = *item.OrderIndex
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return fmt.Errorf("convert coordinates: %w", err)
			}
			if err := f.SetSheetRow(itemsSheet, cell, &values); err != nil {
				return fmt.Errorf("set item row %d: %w", row, err)
			}
			row++
			value := item.ItemValue
			if err := walk(item.ChildItems, &value, level+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(items, nil, 1)
}
