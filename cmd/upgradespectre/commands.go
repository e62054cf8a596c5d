package main

import (
	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command
func NewReportCmd(configPath *string) *cobra.Command {
	opts := &passOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Collect V2 metrics and write the baseline report",
		Long: `Collect every application's metrics from the V2 deployment and write
them to a new spreadsheet, one sheet per domain. An existing file at the
output path is replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = *configPath
			return runReport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Report path (overrides config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Collect and log without writing the report")

	return cmd
}

// NewReconcileCmd creates the reconcile command
func NewReconcileCmd(configPath *string) *cobra.Command {
	opts := &passOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Collect V3 metrics and fill the V3 column of the report",
		Long: `Collect every application's metrics from the V3 deployment and write
them into the V3 column of an existing report. Applications that are not
already in the report are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = *configPath
			return runReconcile(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Report path (overrides config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Collect and log without touching the report")

	return cmd
}

// NewVariationCmd creates the variation command
func NewVariationCmd(configPath *string) *cobra.Command {
	opts := &passOptions{}

	cmd := &cobra.Command{
		Use:   "variation",
		Short: "Compute the Variation column and highlight large changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = *configPath
			return runVariation(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Report path (overrides config)")
	cmd.Flags().BoolVar(&opts.failOnFlagged, "fail-on-flagged", false, "Exit with code 6 when rows exceed the threshold")

	return cmd
}

// NewMenuCmd creates the interactive menu command
func NewMenuCmd(configPath *string) *cobra.Command {
	opts := &passOptions{}

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Choose passes interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = *configPath
			return runMenu(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), menuActions(opts))
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Report path (overrides config)")

	return cmd
}
