package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
)

func newMigrateCmd() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the configuration item tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := schema.ParseLayout(layout)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --layout: %w", err))
			}
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), l)
		},
	}
	cmd.Flags().StringVar(&layout, "layout", schema.LayoutModern.String(), "Schema layout: legacy|modern")
	return cmd
}

func runMigrate(ctx context.Context, out io.Writer, layout schema.Layout) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if err := configitems.Migrate(e.ctx, e.db, layout); err != nil {
		return withCode(exitDB, err)
	}
	return writeJSONLine(out, map[string]string{"layout": layout.String(), "status": "migrated"})
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Report the schema layout of the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModule(cmd.Context(), func(e *env, m *configitems.Module) error {
				return writeJSONLine(cmd.OutOrStdout(), map[string]string{
					"layout": m.Layout.String(),
					"driver": e.db.DriverName(),
				})
			})
		},
	}
}
