package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/upgradespectre/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	verbose bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitNetwork    = 5
	ExitFlagged    = 6
)

// FlaggedError indicates the variation pass completed but rows exceeded the
// threshold.
type FlaggedError struct {
	Count int
}

func (e *FlaggedError) Error() string {
	return fmt.Sprintf("%d rows above variation threshold", e.Count)
}

func main() {
	logging.Init(false)

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		exitCode := classifyError(err)
		var fe *FlaggedError
		if errors.As(err, &fe) {
			slog.Info("flagged rows detected", slog.Int("count", fe.Count))
		} else {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(exitCode)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "upgradespectre",
		Short: "V2/V3 upgrade metric reconciliation",
		Long: `UpgradeSpectre collects per-application metrics from the V2 and V3
deployments of the analysis platform and compares them in one spreadsheet.

Run "report" to write the V2 baseline, "reconcile" to fill in V3 values and
"variation" to compute and highlight the differences. Without a subcommand
an interactive menu offers the same three passes.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), menuActions(&passOptions{configPath: configPath}))
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./.upgradespectre.yaml or ~/.upgradespectre.yaml)")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewReportCmd(&configPath))
	root.AddCommand(NewReconcileCmd(&configPath))
	root.AddCommand(NewVariationCmd(&configPath))
	root.AddCommand(NewMenuCmd(&configPath))
	root.AddCommand(NewVersionCmd())

	return root
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var fe *FlaggedError
	if errors.As(err, &fe) {
		return ExitFlagged
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "not a directory") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") {
		return ExitNotFound
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "connectivity") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "expected") {
		return ExitInvalidArg
	}

	return ExitInternal
}
