package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
)

func newVersionsCmd() *cobra.Command {
	var module, name string

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List every version of a reference list, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				versions, err := m.ReferenceLists.ListVersions(e.ctx, module, name)
				if err != nil {
					return withServiceCode(err)
				}
				for _, v := range versions {
					if err := writeJSONLine(cmd.OutOrStdout(), newVersionRecord(v)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "Owning module (empty for shared lists)")
	cmd.Flags().StringVar(&name, "name", "", "Reference list name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDraftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draft VERSION_ID",
		Short: "Start a Draft version on top of the last version, copying its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				draft, err := m.ReferenceLists.CreateDraftVersion(e.ctx, id)
				if err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), newVersionRecord(draft))
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status VERSION_ID STATUS",
		Short: "Move a version to Ready, Live or Retired",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			status, err := configitem.ParseVersionStatus(args[1])
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid status: %w", err))
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				list, err := m.ReferenceLists.UpdateStatus(e.ctx, id, status)
				if err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), newVersionRecord(list))
			})
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel VERSION_ID",
		Short: "Delete an unpublished last version and make its predecessor last again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				if err := m.ReferenceLists.CancelVersion(e.ctx, id); err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]string{"id": id.String(), "status": "cancelled"})
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	var module, name string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every version of a reference list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return withCode(exitUsage, fmt.Errorf("refusing to delete without --yes"))
			}
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				if err := m.ReferenceLists.DeleteLineage(e.ctx, module, name); err != nil {
					return withServiceCode(err)
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]string{"module": module, "name": name, "status": "deleted"})
			})
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "Owning module (empty for shared lists)")
	cmd.Flags().StringVar(&name, "name", "", "Reference list name (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm destructive delete")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
