package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/models"
)

// fakeClient serves canned accounts and statements and records which
// accounts were queried.
type fakeClient struct {
	accounts   []models.Account
	statements []models.StatementItem
	queried    []string
}

func (c *fakeClient) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return c.accounts, nil
}

func (c *fakeClient) ListStatements(ctx context.Context, accountID string, from, to time.Time) ([]models.StatementItem, error) {
	c.queried = append(c.queried, accountID)
	var out []models.StatementItem
	for _, item := range c.statements {
		if item.Account.ID != accountID {
			continue
		}
		if item.Time <= from.Unix() || item.Time > to.Unix() {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func postingBlock(date, payee, toAccount, amount, fromAccount string) string {
	return fmt.Sprintf("%s %s\n\t%-60s %s\n\t%s\n", date, payee, toAccount, amount, fromAccount)
}

func testConfig() *config.Config {
	return &config.Config{
		Settings: config.Settings{
			LedgerDateFormat: "2006/01/02",
			IgnoredAccounts:  []string{"acc-fop"},
			TransferPayee:    "Transfer",
			RecordCashback:   false,
		},
		Accounts: map[string]string{
			"acc-uah": "Assets:Mono:UAH",
			"acc-eur": "Assets:Mono:EUR",
		},
		Matchers: []config.Matcher{
			{MCC: []int{6011}, Ignore: true},
			{MCC: []int{5411}, LedgerAccount: "Expenses:Food", Payee: "Groceries"},
		},
	}
}

func TestRun(t *testing.T) {
	uah := models.Account{ID: "acc-uah", CurrencyCode: 980}
	eur := models.Account{ID: "acc-eur", CurrencyCode: 978}
	fop := models.Account{ID: "acc-fop", CurrencyCode: 980}

	expenseTime := time.Date(2023, time.February, 12, 12, 0, 0, 0, time.UTC).Unix()
	sourceTime := time.Date(2023, time.February, 13, 12, 0, 0, 0, time.UTC).Unix()
	destTime := sourceTime + 5
	atmTime := time.Date(2023, time.February, 14, 12, 0, 0, 0, time.UTC).Unix()

	client := &fakeClient{
		accounts: []models.Account{uah, eur, fop},
		// Deliberately out of chronological order; Run must sort before
		// merging.
		statements: []models.StatementItem{
			{ID: "st-atm", Time: atmTime, Description: "ATM", MCC: 6011, Amount: -50000, OperationAmount: -50000, CurrencyCode: 980, Account: uah},
			{ID: "st-dst", Time: destTime, Description: "З гривневого рахунку", MCC: 4829, Amount: 1000, OperationAmount: 1000, CurrencyCode: 978, Account: eur},
			{ID: "st-food", Time: expenseTime, Description: "Silpo", MCC: 5411, Amount: -15050, OperationAmount: -15050, CurrencyCode: 980, Account: uah},
			{ID: "st-src", Time: sourceTime, Description: "На євровий рахунок", MCC: 4829, Amount: -36942, OperationAmount: -36942, CurrencyCode: 980, Account: uah},
		},
	}

	now := time.Date(2023, time.February, 15, 10, 0, 0, 0, time.UTC)
	ledgerFile := strings.NewReader("2023/01/10 Grocery\n\tExpenses:Food  100.00 UAH\n\tAssets:Mono:UAH\n")

	var out bytes.Buffer
	err := Run(context.Background(), testConfig(), client, ledgerFile, &out, now)
	require.NoError(t, err)

	expenseBlock := postingBlock(
		time.Unix(expenseTime, 0).Format("2006/01/02"),
		"Groceries", "Expenses:Food", "  150.50 UAH", "Assets:Mono:UAH",
	)
	transferBlock := postingBlock(
		time.Unix(destTime, 0).Format("2006/01/02"),
		"Transfer", "Assets:Mono:EUR", "   10.00 EUR @@ 369.42 UAH", "Assets:Mono:UAH",
	)
	want := "\n;; Begin mono2ledger output\n;; Date and time: 2023-02-15 10:00:00\n\n" +
		expenseBlock + "\n" + transferBlock + "\n;; End mono2ledger output\n"
	assert.Equal(t, want, out.String())

	assert.Contains(t, client.queried, "acc-uah")
	assert.Contains(t, client.queried, "acc-eur")
	assert.NotContains(t, client.queried, "acc-fop", "ignored accounts are never fetched")
}

func TestRunListAccountsError(t *testing.T) {
	client := &failingClient{}
	var out bytes.Buffer
	err := Run(context.Background(), testConfig(), client, strings.NewReader(""), &out, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list accounts")
	assert.Zero(t, out.Len(), "no output is written on failure")
}

type failingClient struct{}

func (failingClient) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return nil, fmt.Errorf("boom")
}

func (failingClient) ListStatements(ctx context.Context, accountID string, from, to time.Time) ([]models.StatementItem, error) {
	return nil, nil
}

func TestRunInvalidMatcherRegex(t *testing.T) {
	cfg := testConfig()
	cfg.Matchers = append(cfg.Matchers, config.Matcher{DescriptionRegex: []string{"("}})

	err := Run(context.Background(), cfg, &fakeClient{}, strings.NewReader(""), &bytes.Buffer{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid description regex")
}
