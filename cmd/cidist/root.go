package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var metricsFile string

	cmd := &cobra.Command{
		Use:           "cidist",
		Short:         "Configuration item distribution: migrate, import and export reference lists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" {
				return nil
			}
			// Textfile collector format, picked up by node_exporter.
			if err := prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer); err != nil {
				return withCode(exitDB, fmt.Errorf("write metrics: %w", err))
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after the command")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newModulesCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newDraftCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCancelCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
