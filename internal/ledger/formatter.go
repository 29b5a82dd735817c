// Package ledger renders classified statement items and merged transfers
// as plain-text ledger transactions.
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/currency"
	"github.com/ipvych/mono2ledger/internal/matcher"
	"github.com/ipvych/mono2ledger/internal/models"
)

// Column widths of a rendered posting. The destination account is padded
// so amounts line up; the primary amount is right-aligned, an exchange
// counter-amount is not padded.
const (
	accountWidth = 60
	amountWidth  = 8
)

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Formatter renders ledger transaction blocks. It has no side effects
// beyond text production and warning logs for unmapped accounts.
type Formatter struct {
	cfg        *config.Config
	currencies currency.Resolver
}

// NewFormatter creates a Formatter using the given configuration and
// currency resolver.
func NewFormatter(cfg *config.Config, currencies currency.Resolver) *Formatter {
	return &Formatter{cfg: cfg, currencies: currencies}
}

// FormatStatement renders one statement item with its resolved action as
// one or two blank-line separated ledger transaction blocks. The second
// block is the cashback side-entry, emitted when the item carries cashback
// and recording is enabled.
func (f *Formatter) FormatStatement(item models.StatementItem, action matcher.Action) (string, error) {
	cur, err := currency.MustAlpha3(f.currencies, item.Account.CurrencyCode)
	if err != nil {
		return "", err
	}

	toAccount := action.LedgerAccount
	fromAccount := f.accountName(item.Account) + action.SourceAccountSuffix
	if item.Amount > 0 {
		// Incoming funds: the destination side must receive the posting.
		toAccount, fromAccount = fromAccount, toAccount
	}

	amount := f.formatAmount(abs(item.Amount), true) + " " + cur
	if item.HasExchange() {
		counterCur, err := currency.MustAlpha3(f.currencies, item.CurrencyCode)
		if err != nil {
			return "", err
		}
		amount += " @@ " + f.formatAmount(abs(item.OperationAmount), false) + " " + counterCur
	}

	block := f.formatBlock(item.Date().Format(f.cfg.Settings.LedgerDateFormat), action.Payee, toAccount, fromAccount, amount)

	if f.cfg.Settings.RecordCashback && item.CashbackAmount > 0 {
		cashback, err := f.formatCashback(item)
		if err != nil {
			return "", err
		}
		block += "\n" + cashback
	}
	return block, nil
}

// FormatTransfer renders a merged cross-card transfer. The destination
// side of the transfer provides the primary amount and currency, the
// source side the counter-amount; accounts are already correctly oriented
// by the merge engine so no sign swap happens here.
func (f *Formatter) FormatTransfer(t models.MergedTransfer) (string, error) {
	cur, err := currency.MustAlpha3(f.currencies, t.Destination.Account.CurrencyCode)
	if err != nil {
		return "", err
	}

	amount := f.formatAmount(abs(t.Destination.Amount), true) + " " + cur
	if t.Source.Account.CurrencyCode != t.Destination.Account.CurrencyCode {
		counterCur, err := currency.MustAlpha3(f.currencies, t.Source.Account.CurrencyCode)
		if err != nil {
			return "", err
		}
		amount += " @@ " + f.formatAmount(abs(t.Source.Amount), false) + " " + counterCur
	}

	toAccount := f.accountName(t.Destination.Account)
	fromAccount := f.accountName(t.Source.Account)
	date := t.Date().Format(f.cfg.Settings.LedgerDateFormat)
	return f.formatBlock(date, f.cfg.Settings.TransferPayee, toAccount, fromAccount, amount), nil
}

func (f *Formatter) formatCashback(item models.StatementItem) (string, error) {
	if item.Account.CashbackType == "" {
		return "", fmt.Errorf("statement %s has cashback but its account has no cashback currency type", item.ID)
	}
	amount := f.formatAmount(item.CashbackAmount, true) + " " + item.Account.CashbackType
	date := item.Date().Format(f.cfg.Settings.LedgerDateFormat)
	return f.formatBlock(
		date,
		f.cfg.Settings.CashbackPayee,
		f.cfg.Settings.CashbackAssetAccount,
		f.cfg.Settings.CashbackIncomeAccount,
		amount,
	), nil
}

func (f *Formatter) formatBlock(date, payee, toAccount, fromAccount, amount string) string {
	return fmt.Sprintf("%s %s\n\t%-*s %s\n\t%s\n", date, payee, accountWidth, toAccount, amount, fromAccount)
}

// formatAmount renders a minor-unit amount as a decimal value. Amounts
// without a fractional part render as integers when trim_leading_zeroes is
// enabled, otherwise with exactly two decimal digits. Primary posting
// amounts are right-aligned; exchange counter-amounts are not padded.
func (f *Formatter) formatAmount(minor int64, pad bool) string {
	value := decimal.New(minor, -2)
	var s string
	if f.cfg.Settings.TrimLeadingZeroes && value.IsInteger() {
		s = value.StringFixed(0)
	} else {
		s = value.StringFixed(2)
	}
	if pad {
		return fmt.Sprintf("%*s", amountWidth, s)
	}
	return s
}

// accountName maps a bank account to its configured ledger account name,
// falling back to a deterministic asset account when no mapping exists.
func (f *Formatter) accountName(account models.Account) string {
	if name, ok := f.cfg.AccountName(account.ID); ok {
		return name
	}
	log.WithField("account", account.ID).Warn("Could not find matching account definition for account")
	return "Assets:Mono2ledger:" + account.ID
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Header returns the comment lines inserted before a run's output.
func Header(timestamp string) string {
	return fmt.Sprintf(";; Begin mono2ledger output\n;; Date and time: %s\n", timestamp)
}

// Footer returns the comment line inserted after a run's output.
func Footer() string {
	return ";; End mono2ledger output\n"
}

// JoinBlocks joins transaction blocks with blank lines.
func JoinBlocks(blocks []string) string {
	return strings.Join(blocks, "\n")
}
