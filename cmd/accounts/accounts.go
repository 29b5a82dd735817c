// Package accounts contains the accounts command which lists bank
// accounts together with their configured ledger mappings.
package accounts

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ipvych/mono2ledger/internal/api"
	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/currency"
)

// Cmd is the accounts command.
var Cmd = &cobra.Command{
	Use:   "accounts",
	Short: "List bank accounts and their ledger account mappings",
	Long: `accounts fetches all accounts from the bank API and prints each with
its currency, IBAN and the ledger account it maps to. Accounts without a
mapping show the fallback asset account; ignored accounts are marked.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, err := cfg.APIKey()
	if err != nil {
		return err
	}
	apiURL, _ := cmd.Flags().GetString("api-url")

	accounts, err := api.NewClient(apiURL, token).ListAccounts(cmd.Context())
	if err != nil {
		return err
	}

	currencies := currency.Table{}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCURRENCY\tIBAN\tLEDGER ACCOUNT")
	for _, account := range accounts {
		cur, ok := currencies.Alpha3(account.CurrencyCode)
		if !ok {
			cur = fmt.Sprintf("#%d", account.CurrencyCode)
		}
		name, ok := cfg.AccountName(account.ID)
		if !ok {
			name = "Assets:Mono2ledger:" + account.ID
		}
		if cfg.IsIgnored(account.ID) {
			name += " (ignored)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", account.ID, cur, account.IBAN, name)
	}
	return w.Flush()
}
