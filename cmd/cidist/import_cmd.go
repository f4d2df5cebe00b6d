package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/services"
)

type importOptions struct {
	files         []string
	apply         bool
	format        distribution.Format
	statusAs      *configitem.VersionStatus
	createModules bool
}

type importRecord struct {
	File          string         `json:"file"`
	ImportID      uuid.UUID      `json:"import_id"`
	Key           string         `json:"key"`
	Path          string         `json:"path"`
	VersionID     uuid.UUID      `json:"version_id"`
	VersionNo     int            `json:"version_no"`
	Status        string         `json:"status"`
	ItemsImported int            `json:"items_imported"`
	Retired       int            `json:"retired"`
	Cancelled     int            `json:"cancelled"`
	ModuleCreated bool           `json:"module_created"`
	DryRun        bool           `json:"dry_run"`
	Changes       jsondiff.Patch `json:"changes,omitempty"`
}

func newImportCmd() *cobra.Command {
	var opts importOptions
	var format, status string

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import reference lists from JSON or YAML files (\"-\" reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.files = args
			return runImport(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply changes to DB (default is dry-run)")
	cmd.Flags().StringVar(&format, "format", "", "Payload format: json|yaml|toml (default: from file extension)")
	cmd.Flags().StringVar(&status, "status", "", "Import every list with this version status instead of the one in the file")
	cmd.Flags().BoolVar(&opts.createModules, "create-modules", false, "Create missing owning modules")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		switch f := distribution.Format(stringsTrim(format)); f {
		case distribution.FormatAuto, distribution.FormatJSON, distribution.FormatYAML, distribution.FormatTOML:
			opts.format = f
		default:
			return withCode(exitUsage, fmt.Errorf("unsupported --format: %s", format))
		}
		if stringsTrim(status) != "" {
			s, err := configitem.ParseVersionStatus(status)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --status: %w", err))
			}
			opts.statusAs = &s
		}
		return nil
	}

	return cmd
}

// runImport imports the files in order, each in its own transaction. It stops at the
// first failure; files imported before it stay applied.
func runImport(ctx context.Context, stdin io.Reader, out io.Writer, opts importOptions) error {
	return withModule(ctx, func(e *env, m *configitems.Module) error {
		req := services.ImportRequest{
			StatusAs:      opts.statusAs,
			CreateModules: opts.createModules,
			DryRun:        !opts.apply,
		}
		for _, file := range opts.files {
			res, err := importFile(e.ctx, m.Imports, stdin, file, opts.format, req)
			if err != nil {
				return withServiceCode(fmt.Errorf("%s: %w", file, err))
			}
			if err := writeJSONLine(out, importRecord{
				File:          file,
				ImportID:      res.ImportID,
				Key:           res.Key.String(),
				Path:          string(res.Path),
				VersionID:     res.List.ID,
				VersionNo:     res.List.VersionNo,
				Status:        res.List.VersionStatus.String(),
				ItemsImported: res.ItemsImported,
				Retired:       res.Retired,
				Cancelled:     res.Cancelled,
				ModuleCreated: res.ModuleCreated,
				DryRun:        res.DryRun,
				Changes:       res.Changes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func importFile(ctx context.Context, imports *services.ImportService, stdin io.Reader, file string, format distribution.Format, req services.ImportRequest) (*services.ImportResult, error) {
	if file == "-" {
		return imports.ImportReader(ctx, stdin, format, req)
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	defer f.Close()
	if format == distribution.FormatAuto {
		format = distribution.FormatFromPath(file)
	}
	return imports.ImportReader(ctx, f, format, req)
}
