package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/ipvych/mono2ledger/cmd/accounts"
	"github.com/ipvych/mono2ledger/cmd/configcmd"
	"github.com/ipvych/mono2ledger/cmd/root"
	"github.com/ipvych/mono2ledger/cmd/statement"
	"github.com/ipvych/mono2ledger/internal/cli"
)

func init() {
	loadEnvSilently()

	root.Init()
	statement.Init()

	root.Cmd.AddCommand(accounts.Cmd)
	root.Cmd.AddCommand(statement.Cmd)
	root.Cmd.AddCommand(configcmd.Cmd)
}

// loadEnvSilently loads environment variables from a .env file before any
// logging is configured.
func loadEnvSilently() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		cli.Error(err)
		os.Exit(1)
	}
}
