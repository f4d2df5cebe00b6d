package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/services"
)

// listTarget names the list a raw editing command works on.
type listTarget struct {
	module  string
	name    string
	dataFix bool
}

func (t *listTarget) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.module, "module", "", "Owning module (empty for shared lists)")
	cmd.Flags().StringVar(&t.name, "name", "", "Reference list name (required)")
	_ = cmd.MarkFlagRequired("name")
}

// bindEdit also registers --data-fix for commands that change the last version in place.
func (t *listTarget) bindEdit(cmd *cobra.Command) {
	t.bind(cmd)
	cmd.Flags().BoolVar(&t.dataFix, "data-fix", false, "Allow editing a Live or Retired version")
}

func (t *listTarget) lists(m *configitems.Module) *services.ReferenceListService {
	if t.dataFix {
		return m.ReferenceLists.DataFix()
	}
	return m.ReferenceLists
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Edit the last version of a reference list in place",
	}
	cmd.AddCommand(newListCreateCmd())
	cmd.AddCommand(newListDescribeCmd())
	cmd.AddCommand(newListAddItemCmd())
	cmd.AddCommand(newListUpdateItemCmd())
	cmd.AddCommand(newListRemoveItemCmd())
	cmd.AddCommand(newListClearCmd())
	return cmd
}

func newListCreateCmd() *cobra.Command {
	var target listTarget
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty reference list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				id, err := m.ReferenceLists.CreateList(e.ctx, target.module, target.name, description)
				if err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]string{"id": id.String(), "name": target.name})
			})
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVar(&description, "description", "", "List description")
	return cmd
}

func newListDescribeCmd() *cobra.Command {
	var target listTarget
	var description string
	var noSelection int64

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Set the description or the no-selection value of a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setDescription := cmd.Flags().Changed("description")
			setNoSelection := cmd.Flags().Changed("no-selection")
			if !setDescription && !setNoSelection {
				return withCode(exitUsage, fmt.Errorf("one of --description or --no-selection is required"))
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				if setDescription {
					if err := target.lists(m).SetDescription(e.ctx, target.module, target.name, description); err != nil {
						return withServiceCode(err)
					}
				}
				if setNoSelection {
					if err := target.lists(m).SetNoSelectionValue(e.ctx, target.module, target.name, &noSelection); err != nil {
						return withServiceCode(err)
					}
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]string{"name": target.name, "status": "updated"})
			})
		},
	}
	target.bindEdit(cmd)
	cmd.Flags().StringVar(&description, "description", "", "List description")
	cmd.Flags().Int64Var(&noSelection, "no-selection", 0, "Value meaning no item is selected")
	return cmd
}

func newListAddItemCmd() *cobra.Command {
	var target listTarget
	var item referencelist.Item
	var parent int64

	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Add an item, optionally under the item holding --parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stringsTrim(item.Item) == "" {
				return withCode(exitUsage, fmt.Errorf("--text is required"))
			}
			var parentValue *int64
			if cmd.Flags().Changed("parent") {
				parentValue = &parent
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				added, err := target.lists(m).AddItem(e.ctx, target.module, target.name, parentValue, item)
				if err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), added)
			})
		},
	}
	target.bindEdit(cmd)
	cmd.Flags().StringVar(&item.Item, "text", "", "Item text (required)")
	cmd.Flags().Int64Var(&item.ItemValue, "value", 0, "Item value (required)")
	cmd.Flags().Int64Var(&item.OrderIndex, "order", 0, "Order among siblings")
	cmd.Flags().StringVar(&item.Description, "description", "", "Item description")
	cmd.Flags().StringVar(&item.Color, "color", "", "Item color")
	cmd.Flags().StringVar(&item.Icon, "icon", "", "Item icon")
	cmd.Flags().StringVar(&item.ShortAlias, "alias", "", "Short alias")
	cmd.Flags().Int64Var(&parent, "parent", 0, "Value of the parent item")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newListUpdateItemCmd() *cobra.Command {
	var target listTarget
	var value int64
	var text, description string
	var order int64

	cmd := &cobra.Command{
		Use:   "update-item",
		Short: "Change the text, description or order of an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch services.ItemPatch
			if cmd.Flags().Changed("text") {
				patch.Item = &text
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("order") {
				patch.OrderIndex = &order
			}
			if patch.Item == nil && patch.Description == nil && patch.OrderIndex == nil {
				return withCode(exitUsage, fmt.Errorf("nothing to update"))
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				if err := target.lists(m).UpdateItem(e.ctx, target.module, target.name, value, patch); err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]any{"item_value": value, "status": "updated"})
			})
		},
	}
	target.bindEdit(cmd)
	cmd.Flags().Int64Var(&value, "value", 0, "Item value (required)")
	cmd.Flags().StringVar(&text, "text", "", "New item text")
	cmd.Flags().StringVar(&description, "description", "", "New item description")
	cmd.Flags().Int64Var(&order, "order", 0, "New order among siblings")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newListRemoveItemCmd() *cobra.Command {
	var target listTarget
	var value int64

	cmd := &cobra.Command{
		Use:   "remove-item",
		Short: "Remove an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				if err := target.lists(m).RemoveItem(e.ctx, target.module, target.name, value); err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]any{"item_value": value, "status": "removed"})
			})
		},
	}
	target.bindEdit(cmd)
	cmd.Flags().Int64Var(&value, "value", 0, "Item value (required)")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newListClearCmd() *cobra.Command {
	var target listTarget

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every item of a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				if err := target.lists(m).ClearItems(e.ctx, target.module, target.name); err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]string{"name": target.name, "status": "cleared"})
			})
		},
	}
	target.bindEdit(cmd)
	return cmd
}
