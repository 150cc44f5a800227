// Command gridmap transforms spreadsheet grids into records from the command line.
//
//	gridmap transform roster.xlsx --sheet People --column name="Full Name" --column "team=Team|autofill"
//	gridmap run roster --pipelines pipelines.yaml
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/logging"
	"github.com/spf13/cobra"
)

// errEmptyInput marks a run whose grid had no rows. The issue itself has
// already been logged.
var errEmptyInput = errors.New("grid has no rows")

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errEmptyInput) {
			fmt.Fprintln(os.Stderr, "gridmap:", describe(err))
		}
		os.Exit(1)
	}
}

// describe prefers the coded user message, keeping the raw error for detail.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("%s\n  %v", core.FormatUserError(err), err)
	}
	return err.Error()
}

func newRootCommand() *cobra.Command {
	var level, format string
	cmd := &cobra.Command{
		Use:           "gridmap",
		Short:         "Map spreadsheet grids to records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, format))
		},
	}
	cmd.PersistentFlags().StringVar(&level, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&format, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(newTransformCommand())
	cmd.AddCommand(newRunCommand())
	return cmd
}
