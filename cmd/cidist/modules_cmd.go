package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/configitems/modules/configitems"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules that own reference lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				mods, err := m.Modules.List(e.ctx)
				if err != nil {
					return withCode(exitDB, err)
				}
				for _, mod := range mods {
					if err := writeJSONLine(cmd.OutOrStdout(), mod); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
