// Package csvimport parses the statement CSV export from the bank's
// personal cabinet into statement items. It exists for offline use: the
// export covers periods the API no longer serves, and needs no API token.
package csvimport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/currency"
	"github.com/ipvych/mono2ledger/internal/models"
)

// dateTimeLayout is the timestamp format used in the CSV export.
const dateTimeLayout = "02.01.2006 15:04:05"

// emptyCell is what the export writes for absent values.
const emptyCell = "—"

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// row mirrors one line of the export. Header names carry the account
// currency in parentheses, e.g. "Card currency amount, (UAH)"; the header
// is normalized before unmarshalling so the tags here stay stable.
type row struct {
	DateTime        string `csv:"Date and time"`
	Description     string `csv:"Description"`
	MCC             int    `csv:"MCC"`
	CardAmount      string `csv:"Card currency amount"`
	OperationAmount string `csv:"Operation amount"`
	Currency        string `csv:"Currency"`
	ExchangeRate    string `csv:"Exchange rate"`
	Commission      string `csv:"Commission"`
	Cashback        string `csv:"Cashback amount"`
	Balance         string `csv:"Balance"`
}

// Parse reads a statement CSV export and returns statement items attached
// to the given account. Items keep the file order; callers sort as needed.
func Parse(r io.Reader, account models.Account) ([]models.StatementItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement CSV: %w", err)
	}

	var rows []row
	if err := gocsv.UnmarshalString(normalizeHeader(string(data)), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse statement CSV: %w", err)
	}

	items := make([]models.StatementItem, 0, len(rows))
	for i, rec := range rows {
		item, err := rec.toStatementItem(i, account)
		if err != nil {
			return nil, fmt.Errorf("statement CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	log.WithField("count", len(items)).Info("Parsed statement CSV export")
	return items, nil
}

func (r row) toStatementItem(index int, account models.Account) (models.StatementItem, error) {
	ts, err := time.ParseInLocation(dateTimeLayout, r.DateTime, time.Local)
	if err != nil {
		return models.StatementItem{}, fmt.Errorf("invalid timestamp %q: %w", r.DateTime, err)
	}
	amount, err := parseMinorUnits(r.CardAmount)
	if err != nil {
		return models.StatementItem{}, fmt.Errorf("invalid card amount: %w", err)
	}
	operationAmount, err := parseMinorUnits(r.OperationAmount)
	if err != nil {
		return models.StatementItem{}, fmt.Errorf("invalid operation amount: %w", err)
	}
	cashback, err := parseMinorUnits(r.Cashback)
	if err != nil {
		return models.StatementItem{}, fmt.Errorf("invalid cashback amount: %w", err)
	}

	currencyCode := account.CurrencyCode
	if cur := strings.TrimSpace(r.Currency); cur != "" && cur != emptyCell {
		code, ok := currency.Numeric(cur)
		if !ok {
			return models.StatementItem{}, fmt.Errorf("unknown currency %q", cur)
		}
		currencyCode = code
	}

	return models.StatementItem{
		ID:              fmt.Sprintf("csv-%d", index+1),
		Time:            ts.Unix(),
		Description:     r.Description,
		MCC:             r.MCC,
		OriginalMCC:     r.MCC,
		Amount:          amount,
		OperationAmount: operationAmount,
		CurrencyCode:    currencyCode,
		CashbackAmount:  cashback,
		Account:         account,
	}, nil
}

// parseMinorUnits converts a major-unit decimal cell into minor units.
func parseMinorUnits(cell string) (int64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == emptyCell {
		return 0, nil
	}
	value, err := decimal.NewFromString(cell)
	if err != nil {
		return 0, err
	}
	return value.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// normalizeHeader strips the per-account currency suffix from header
// cells, e.g. "Card currency amount, (UAH)" becomes "Card currency
// amount", so column names match regardless of the card currency.
func normalizeHeader(data string) string {
	header, rest, found := strings.Cut(data, "\n")
	if !found {
		return data
	}
	cells := strings.Split(header, ",")
	var normalized []string
	for i := 0; i < len(cells); i++ {
		cell := strings.TrimSpace(cells[i])
		if strings.HasPrefix(cell, "(") && strings.HasSuffix(cell, ")") && len(normalized) > 0 {
			continue
		}
		normalized = append(normalized, cell)
	}
	return strings.Join(normalized, ",") + "\n" + rest
}
