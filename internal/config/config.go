// Package config provides Viper-based configuration loading for the
// application. Configuration is read from a YAML file in the user's XDG
// config directory and may be overridden through environment variables.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable holding the bank API token. It
// takes precedence over the api_key_command setting.
const EnvAPIKey = "MONOBANK_API_KEY"

// Settings holds the scalar settings of the application.
type Settings struct {
	// LedgerDateFormat is a Go time layout used both for parsing checkpoint
	// dates out of the ledger file and for rendering transaction dates.
	LedgerDateFormat string `mapstructure:"ledger_date_format" yaml:"ledger_date_format"`
	// LedgerFile is the ledger file scanned for the checkpoint date. It may
	// be overridden by a command line argument.
	LedgerFile string `mapstructure:"ledger_file" yaml:"ledger_file"`
	// IgnoredAccounts lists account identifiers whose statements are never
	// fetched.
	IgnoredAccounts []string `mapstructure:"ignored_accounts" yaml:"ignored_accounts"`
	// APIKeyCommand is a shell command whose first line of output is used
	// as the API token when MONOBANK_API_KEY is not set.
	APIKeyCommand string `mapstructure:"api_key_command" yaml:"api_key_command"`

	TransferPayee     string `mapstructure:"transfer_payee" yaml:"transfer_payee"`
	TrimLeadingZeroes bool   `mapstructure:"trim_leading_zeroes" yaml:"trim_leading_zeroes"`

	RecordCashback        bool   `mapstructure:"record_cashback" yaml:"record_cashback"`
	CashbackPayee         string `mapstructure:"cashback_payee" yaml:"cashback_payee"`
	CashbackAssetAccount  string `mapstructure:"cashback_ledger_asset_account" yaml:"cashback_ledger_asset_account"`
	CashbackIncomeAccount string `mapstructure:"cashback_ledger_income_account" yaml:"cashback_ledger_income_account"`
}

// Matcher is a single classification rule as written in the config file.
// Rules are evaluated in declaration order; the first rule whose MCC set or
// description regex matches a statement wins.
type Matcher struct {
	LedgerAccount       string   `mapstructure:"ledger_account" yaml:"ledger_account"`
	Payee               string   `mapstructure:"payee" yaml:"payee"`
	SourceAccountSuffix string   `mapstructure:"source_ledger_account_suffix" yaml:"source_ledger_account_suffix"`
	MCC                 []int    `mapstructure:"mcc" yaml:"mcc"`
	DescriptionRegex    []string `mapstructure:"description_regex" yaml:"description_regex"`
	Ignore              bool     `mapstructure:"ignore" yaml:"ignore"`
}

// Config is the complete application configuration.
type Config struct {
	Settings Settings `mapstructure:"settings" yaml:"settings"`
	// Accounts maps a bank account identifier to its ledger account name.
	Accounts map[string]string `mapstructure:"accounts" yaml:"accounts"`
	Matchers []Matcher         `mapstructure:"matchers" yaml:"matchers"`
}

// Load reads the configuration from $XDG_CONFIG_HOME/mono2ledger/config.yaml
// (falling back to ~/.config and the current directory) and from
// MONO2LEDGER_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "mono2ledger"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "mono2ledger"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("MONO2LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Settings.LedgerFile != "" {
		cfg.Settings.LedgerFile = expandHome(cfg.Settings.LedgerFile)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings.ledger_date_format", "2006/01/02")
	v.SetDefault("settings.ignored_accounts", []string{})
	v.SetDefault("settings.transfer_payee", "Transfer")
	v.SetDefault("settings.trim_leading_zeroes", false)
	v.SetDefault("settings.record_cashback", true)
	v.SetDefault("settings.cashback_payee", "Cashback")
	v.SetDefault("settings.cashback_ledger_asset_account", "Assets:Mono2ledger:Cashback")
	v.SetDefault("settings.cashback_ledger_income_account", "Income:Mono2ledger:Cashback")
}

// Validate checks the configuration values that every run depends on.
// Matcher regexes are compiled (and reported) by the matcher package.
func Validate(cfg *Config) error {
	if cfg.Settings.LedgerDateFormat == "" {
		return fmt.Errorf("ledger_date_format must not be empty")
	}
	// A layout that cannot round-trip a date would make the checkpoint
	// scanner reject every ledger file.
	ref := time.Date(2023, time.July, 8, 0, 0, 0, 0, time.UTC)
	if _, err := time.Parse(cfg.Settings.LedgerDateFormat, ref.Format(cfg.Settings.LedgerDateFormat)); err != nil {
		return fmt.Errorf("ledger_date_format %q is not a valid date layout: %w", cfg.Settings.LedgerDateFormat, err)
	}
	if cfg.Settings.RecordCashback {
		if cfg.Settings.CashbackAssetAccount == "" || cfg.Settings.CashbackIncomeAccount == "" {
			return fmt.Errorf("cashback ledger accounts must be set when record_cashback is enabled")
		}
	}
	return nil
}

// AccountName returns the ledger account name configured for the given bank
// account identifier.
func (c *Config) AccountName(accountID string) (string, bool) {
	name, ok := c.Accounts[accountID]
	return name, ok
}

// IsIgnored reports whether statements for the given account identifier
// should not be fetched.
func (c *Config) IsIgnored(accountID string) bool {
	for _, id := range c.Settings.IgnoredAccounts {
		if id == accountID {
			return true
		}
	}
	return false
}

// APIKey resolves the bank API token: the MONOBANK_API_KEY environment
// variable wins, otherwise api_key_command is executed and the first line
// of its output is used.
func (c *Config) APIKey() (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}
	if c.Settings.APIKeyCommand == "" {
		return "", fmt.Errorf("no API key: set %s or api_key_command in config", EnvAPIKey)
	}
	out, err := exec.Command("sh", "-c", c.Settings.APIKeyCommand).Output()
	if err != nil {
		return "", fmt.Errorf("could not retrieve API key using provided command: %w", err)
	}
	key, _, _ := strings.Cut(string(out), "\n")
	if key == "" {
		return "", fmt.Errorf("api_key_command produced no output")
	}
	return key, nil
}

// Dump renders the effective configuration as YAML. Used by the config
// subcommand to let the user inspect defaults and overrides.
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}

// ConfigureLogging sets up the shared logger from the LOG_LEVEL environment
// variable and returns it.
func ConfigureLogging() *logrus.Logger {
	logger := logrus.New()

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", levelStr)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
		}
	}
	return path
}
