// Package root contains the root command: a full import run against the
// bank API.
package root

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ipvych/mono2ledger/internal/api"
	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/csvimport"
	"github.com/ipvych/mono2ledger/internal/fetcher"
	"github.com/ipvych/mono2ledger/internal/ledger"
	"github.com/ipvych/mono2ledger/internal/matcher"
	"github.com/ipvych/mono2ledger/internal/pipeline"
	"github.com/ipvych/mono2ledger/internal/transfer"
)

var (
	// Log is the shared logger instance for commands.
	Log = logrus.New()

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "mono2ledger [ledger-file] [output-file]",
		Short: "Convert Monobank statements to ledger transactions.",
		Long: `mono2ledger fetches new transactions from the Monobank API since the
last transaction recorded in the ledger file and prints them as ledger
transaction blocks. Cross-card transfers between own accounts are merged
into single transfer entries.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Log = config.ConfigureLogging()
			SetLoggers(Log)
		},
	}
)

// Init initializes the root command flags.
func Init() {
	Cmd.PersistentFlags().String("api-url", "", "Override the bank API base URL")
}

// SetLoggers propagates the configured logger to every internal package.
func SetLoggers(logger *logrus.Logger) {
	api.SetLogger(logger)
	csvimport.SetLogger(logger)
	fetcher.SetLogger(logger)
	ledger.SetLogger(logger)
	matcher.SetLogger(logger)
	pipeline.SetLogger(logger)
	transfer.SetLogger(logger)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ledgerPath := cfg.Settings.LedgerFile
	if len(args) > 0 {
		ledgerPath = args[0]
	}
	if ledgerPath == "" {
		return fmt.Errorf("you need to set location of ledger file in config or provide it in command line")
	}

	ledgerFile, err := os.Open(ledgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer ledgerFile.Close()

	out := cmd.OutOrStdout()
	if len(args) > 1 {
		outFile, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer outFile.Close()
		out = outFile
	}

	token, err := cfg.APIKey()
	if err != nil {
		return err
	}
	apiURL, _ := cmd.Flags().GetString("api-url")
	client := api.NewClient(apiURL, token)

	// Output is buffered inside the pipeline and written in one call, so
	// an interrupt aborts the run without emitting a truncated ledger.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return pipeline.Run(ctx, cfg, client, ledgerFile, out, time.Now())
}
