package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/spreadsheet"
)

// formatXLSX is an export-only format.
const formatXLSX = "xlsx"

type exportOptions struct {
	module string
	name   string
	format string
	output string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the last version of a reference list in its distribution form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.module, "module", "", "Owning module (empty for shared lists)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Reference list name (required)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json|yaml|toml|xlsx (default: from --output extension, else json)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("name")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		f, err := exportFormat(format, opts.output)
		if err != nil {
			return withCode(exitUsage, err)
		}
		opts.format = f
		return nil
	}

	return cmd
}

func exportFormat(flag, output string) (string, error) {
	f := strings.ToLower(stringsTrim(flag))
	if f == "" && output != "" {
		if strings.EqualFold(filepath.Ext(output), ".xlsx") {
			return formatXLSX, nil
		}
		f = string(distribution.FormatFromPath(output))
	}
	switch f {
	case "":
		return string(distribution.FormatJSON), nil
	case string(distribution.FormatJSON), string(distribution.FormatYAML), string(distribution.FormatTOML), formatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported --format: %s", flag)
	}
}

func runExport(ctx context.Context, out io.Writer, opts exportOptions) error {
	return withModule(ctx, func(e *env, m *configitems.Module) error {
		list, err := m.ReferenceLists.Export(e.ctx, opts.module, opts.name)
		if err != nil {
			return withServiceCode(err)
		}
		var buf bytes.Buffer
		if opts.format == formatXLSX {
			err = spreadsheet.WriteReferenceList(&buf, list)
		} else {
			err = distribution.EncodeReferenceList(&buf, list, distribution.Format(opts.format))
		}
		if err != nil {
			return withCode(exitDB, fmt.Errorf("encode %s: %w", opts.format, err))
		}
		if opts.output == "" {
			_, err = buf.WriteTo(out)
			return err
		}
		if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
			return withCode(exitDB, fmt.Errorf("mkdir %s: %w", filepath.Dir(opts.output), err))
		}
		if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
			return withCode(exitDB, fmt.Errorf("write %s: %w", opts.output, err))
		}
		return nil
	})
}
