package ledger

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/currency"
	"github.com/ipvych/mono2ledger/internal/matcher"
	"github.com/ipvych/mono2ledger/internal/models"
)

var (
	uahAccount = models.Account{ID: "uah", CurrencyCode: 980, CashbackType: "UAH"}
	eurAccount = models.Account{ID: "eur", CurrencyCode: 978, CashbackType: "UAH"}
)

func testConfig() *config.Config {
	return &config.Config{
		Settings: config.Settings{
			LedgerDateFormat:      "2006/01/02",
			TransferPayee:         "Transfer",
			RecordCashback:        true,
			CashbackPayee:         "Cashback",
			CashbackAssetAccount:  "Assets:Mono2ledger:Cashback",
			CashbackIncomeAccount: "Income:Mono2ledger:Cashback",
		},
		Accounts: map[string]string{
			"uah": "Assets:Mono:UAH",
			"eur": "Assets:Mono:EUR",
		},
	}
}

func newTestFormatter(cfg *config.Config) *Formatter {
	return NewFormatter(cfg, currency.Table{})
}

func statementItem(account models.Account, amount, operationAmount int64, currencyCode int) models.StatementItem {
	return models.StatementItem{
		ID:              "st1",
		Time:            time.Date(2023, time.July, 8, 12, 0, 0, 0, time.Local).Unix(),
		Description:     "Coffee shop",
		Amount:          amount,
		OperationAmount: operationAmount,
		CurrencyCode:    currencyCode,
		Account:         account,
	}
}

func TestFormatStatementOutgoing(t *testing.T) {
	f := newTestFormatter(testConfig())
	item := statementItem(uahAccount, -500, -500, 980)
	action := matcher.Action{LedgerAccount: "Expenses:Coffee", Payee: "Coffee shop"}

	block, err := f.FormatStatement(item, action)
	require.NoError(t, err)

	expected := "2023/07/08 Coffee shop\n" +
		fmt.Sprintf("\t%-60s %8s UAH\n", "Expenses:Coffee", "5.00") +
		"\tAssets:Mono:UAH\n"
	assert.Equal(t, expected, block)
}

func TestFormatStatementIncomingSwapsAccounts(t *testing.T) {
	f := newTestFormatter(testConfig())
	item := statementItem(uahAccount, 500, 500, 980)
	action := matcher.Action{LedgerAccount: "Income:Refunds", Payee: "Refund"}

	block, err := f.FormatStatement(item, action)
	require.NoError(t, err)

	lines := strings.Split(block, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "\tAssets:Mono:UAH"), "asset account must receive the posting")
	assert.Equal(t, "\tIncome:Refunds", lines[2])
	assert.NotContains(t, block, "@@")
}

func TestFormatStatementExchange(t *testing.T) {
	f := newTestFormatter(testConfig())
	// Incoming 10.00 UAH that was a 1.00 USD operation.
	item := statementItem(uahAccount, 1000, 100, 840)
	action := matcher.Action{LedgerAccount: "Income:Abroad", Payee: "Payout"}

	block, err := f.FormatStatement(item, action)
	require.NoError(t, err)

	expected := "2023/07/08 Payout\n" +
		fmt.Sprintf("\t%-60s %8s UAH @@ 1.00 USD\n", "Assets:Mono:UAH", "10.00") +
		"\tIncome:Abroad\n"
	assert.Equal(t, expected, block)
}

func TestFormatStatementOutgoingExchange(t *testing.T) {
	f := newTestFormatter(testConfig())
	item := statementItem(uahAccount, -1000, -100, 840)
	action := matcher.Action{LedgerAccount: "Expenses:Abroad", Payee: "Shop"}

	block, err := f.FormatStatement(item, action)
	require.NoError(t, err)

	assert.Contains(t, block, "10.00 UAH @@ 1.00 USD")
	lines := strings.Split(block, "\n")
	assert.True(t, strings.HasPrefix(lines[1], "\tExpenses:Abroad"))
	assert.Equal(t, "\tAssets:Mono:UAH", lines[2])
}

func TestFormatStatementSourceAccountSuffix(t *testing.T) {
	f := newTestFormatter(testConfig())
	item := statementItem(uahAccount, -500, -500, 980)
	action := matcher.Action{LedgerAccount: "Expenses:Coffee", Payee: "Coffee", SourceAccountSuffix: ":Card"}

	block, err := f.FormatStatement(item, action)
	require.NoError(t, err)
	assert.Contains(t, block, "\tAssets:Mono:UAH:Card\n")
}

func TestFormatStatementTrimLeadingZeroes(t *testing.T) {
	cfg := testConfig()
	cfg.Settings.TrimLeadingZeroes = true
	f := newTestFormatter(cfg)

	tests := []struct {
		name   string
		amount int64
		want   string
	}{
		{"whole number trimmed", -10000, fmt.Sprintf("%8s UAH", "100")},
		{"fractional kept", -10050, fmt.Sprintf("%8s UAH", "100.50")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := statementItem(uahAccount, tc.amount, tc.amount, 980)
			block, err := f.FormatStatement(item, matcher.Action{LedgerAccount: "Expenses:X", Payee: "X"})
			require.NoError(t, err)
			assert.Contains(t, block, tc.want)
		})
	}
}

func TestFormatStatementCashback(t *testing.T) {
	f := newTestFormatter(testConfig())
	item := statementItem(uahAccount, -10000, -10000, 980)
	item.CashbackAmount = 150

	block, err := f.FormatStatement(item, matcher.Action{LedgerAccount: "Expenses:Fuel", Payee: "Gas station"})
	require.NoError(t, err)

	blocks := strings.Split(block, "\n\n")
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], "Expenses:Fuel")
	assert.Contains(t, blocks[1], "2023/07/08 Cashback")
	assert.Contains(t, blocks[1], "Assets:Mono2ledger:Cashback")
	assert.Contains(t, blocks[1], "1.50 UAH")
	assert.Contains(t, blocks[1], "\tIncome:Mono2ledger:Cashback\n")
}

func TestFormatStatementCashbackDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Settings.RecordCashback = false
	f := newTestFormatter(cfg)

	item := statementItem(uahAccount, -10000, -10000, 980)
	item.CashbackAmount = 150

	block, err := f.FormatStatement(item, matcher.Action{LedgerAccount: "Expenses:Fuel", Payee: "Gas station"})
	require.NoError(t, err)
	assert.NotContains(t, block, "Cashback")
}

func TestFormatStatementUnmappedAccountFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Accounts = nil
	f := newTestFormatter(cfg)

	item := statementItem(uahAccount, -500, -500, 980)
	block, err := f.FormatStatement(item, matcher.Action{LedgerAccount: "Expenses:X", Payee: "X"})
	require.NoError(t, err)
	assert.Contains(t, block, "\tAssets:Mono2ledger:uah\n")
}

func TestFormatStatementUnknownCurrency(t *testing.T) {
	f := newTestFormatter(testConfig())
	item := statementItem(models.Account{ID: "odd", CurrencyCode: 1}, -500, -500, 1)

	_, err := f.FormatStatement(item, matcher.Action{LedgerAccount: "Expenses:X", Payee: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currency code 1")
}

func TestFormatTransfer(t *testing.T) {
	f := newTestFormatter(testConfig())
	transfer := models.MergedTransfer{
		Source: models.StatementItem{
			ID:      "s",
			Time:    time.Date(2023, time.July, 8, 11, 0, 0, 0, time.Local).Unix(),
			Amount:  -10000,
			Account: eurAccount,
		},
		Destination: models.StatementItem{
			ID:      "e",
			Time:    time.Date(2023, time.July, 8, 12, 0, 0, 0, time.Local).Unix(),
			Amount:  400000,
			Account: uahAccount,
		},
	}

	block, err := f.FormatTransfer(transfer)
	require.NoError(t, err)

	expected := "2023/07/08 Transfer\n" +
		fmt.Sprintf("\t%-60s %8s UAH @@ 100.00 EUR\n", "Assets:Mono:UAH", "4000.00") +
		"\tAssets:Mono:EUR\n"
	assert.Equal(t, expected, block)
}

func TestFormatTransferSameCurrencyNoExchange(t *testing.T) {
	f := newTestFormatter(testConfig())
	second := uahAccount
	second.ID = "uah2"
	cfg := testConfig()
	cfg.Accounts["uah2"] = "Assets:Mono:UAH2"
	f = newTestFormatter(cfg)

	transfer := models.MergedTransfer{
		Source:      models.StatementItem{Amount: -5000, Account: second},
		Destination: models.StatementItem{Amount: 5000, Account: uahAccount},
	}

	block, err := f.FormatTransfer(transfer)
	require.NoError(t, err)
	assert.NotContains(t, block, "@@")
	assert.Contains(t, block, "50.00 UAH")
}
