package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/footprint/internal/log"
)

// NewRootCmd creates the root command for footprint.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "footprint",
		Short: "Correlate an identity across public platforms",
		Long: `footprint is an OSINT identity aggregator. Given a username, an email
address, a phone number or a real name, it queries public sources, scores
the signals it finds per platform and prints a confidence-ranked report.

Live lookups: GitHub (username) and Gravatar (email). Other platforms are
simulated and reported with search queries for manual verification.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the redacting logger selected by the global flags.
// Logs go to w, which is stderr outside of tests.
func setupLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	asJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		asJSON, _ = cmd.Root().PersistentFlags().GetBool("log-json") //nolint:errcheck // false on error
	}
	if asJSON {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}
