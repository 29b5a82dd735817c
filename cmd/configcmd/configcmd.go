// Package configcmd contains the config command which prints the
// effective configuration after defaults and overrides.
package configcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipvych/mono2ledger/internal/config"
)

// Cmd is the config command.
var Cmd = &cobra.Command{
	Use:           "config",
	Short:         "Print the effective configuration as YAML",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dump, err := cfg.Dump()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), dump)
		return nil
	},
}
