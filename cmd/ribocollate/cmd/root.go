// Package cmd implements the ribocollate command tree.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/riboseqorg/ribocollate/cmd/ribocollate/app"
	"github.com/riboseqorg/ribocollate/pkg/logging"
)

var (
	configFile string
	verbose    bool
	quiet      bool

	appConfig *app.Config
	logger    zerolog.Logger

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ribocollate",
	Short: "Reconcile ribosome-profiling sample metadata into loader fixtures",
	Long: `Ribocollate joins cleaned ribosome-profiling sample metadata against the
GWIPS, Trips and RiboCrypt sample-matching tables, the verification table and
the controlled-vocabulary cleaning sheet, and emits a referentially-complete
fixture file for the data portal's bulk loader.

The pipeline never touches the portal database; orphaned rows, skipped rows
and unmapped vocabulary terms are surfaced in a data-quality report instead
of failing the run.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.ribocollate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "warnings and errors only")
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	config, err := app.LoadConfig(configFile)
	if err != nil {
		return err
	}
	config.UpdateFromFlags(verbose, quiet)

	appConfig = config
	logger = app.NewLogger(config)
	logging.SetDefault(logger)

	return nil
}
