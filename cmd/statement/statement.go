// Package statement contains the statement command which converts an
// offline CSV statement export instead of talking to the bank API.
package statement

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/csvimport"
	"github.com/ipvych/mono2ledger/internal/currency"
	"github.com/ipvych/mono2ledger/internal/matcher"
	"github.com/ipvych/mono2ledger/internal/models"
	"github.com/ipvych/mono2ledger/internal/pipeline"
	"github.com/ipvych/mono2ledger/internal/transfer"
)

var (
	accountID       string
	accountCurrency string
)

// Cmd is the statement command.
var Cmd = &cobra.Command{
	Use:   "statement <statement.csv> [output-file]",
	Short: "Convert a downloaded CSV statement export to ledger transactions",
	Long: `statement converts a statement CSV export downloaded from the bank's
personal cabinet. No API token is needed; all items belong to the account
given by --account. Cross-card merging uses description phrases only since
the export carries no counter-party IBANs.`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Init initializes the statement command flags.
func Init() {
	Cmd.Flags().StringVar(&accountID, "account", "", "Account identifier the statement belongs to (required)")
	Cmd.Flags().StringVar(&accountCurrency, "currency", "UAH", "Account currency as a 3-letter code")
	_ = Cmd.MarkFlagRequired("account")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	engine, err := matcher.Compile(cfg.Matchers)
	if err != nil {
		return err
	}

	currencyCode, ok := currency.Numeric(accountCurrency)
	if !ok {
		return fmt.Errorf("unknown currency %q", accountCurrency)
	}
	account := models.Account{ID: accountID, CurrencyCode: currencyCode, CashbackType: accountCurrency}

	input, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open statement file: %w", err)
	}
	defer input.Close()

	items, err := csvimport.Parse(input, account)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) > 1 {
		outFile, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer outFile.Close()
		out = outFile
	}

	entries := pipeline.MergeSorted(items, transfer.NewClassifier([]models.Account{account}))
	blocks, err := pipeline.Render(cfg, engine, entries)
	if err != nil {
		return err
	}
	return pipeline.Write(out, blocks, time.Now())
}
