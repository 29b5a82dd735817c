// Package models defines the core data structures shared across the
// application: bank accounts, raw statement items and merged transfers.
package models

import "time"

// Account is a single card or account returned by the bank's client-info
// endpoint. Accounts are immutable once fetched.
type Account struct {
	ID           string   `json:"id"`
	SendID       string   `json:"sendId"`
	CurrencyCode int      `json:"currencyCode"`
	CashbackType string   `json:"cashbackType"`
	Type         string   `json:"type"`
	IBAN         string   `json:"iban"`
	MaskedPan    []string `json:"maskedPan"`
}

// StatementItem is a single raw transaction from the bank statement.
// Amounts are signed integers in minor units of the respective currency:
// negative means funds leaving the account, positive means funds arriving.
// Amount is denominated in the account currency, OperationAmount in the
// transaction currency; they differ only when a currency exchange occurred.
type StatementItem struct {
	ID              string `json:"id"`
	Time            int64  `json:"time"`
	Description     string `json:"description"`
	MCC             int    `json:"mcc"`
	OriginalMCC     int    `json:"originalMcc"`
	Hold            bool   `json:"hold"`
	Amount          int64  `json:"amount"`
	OperationAmount int64  `json:"operationAmount"`
	CurrencyCode    int    `json:"currencyCode"`
	CommissionRate  int64  `json:"commissionRate"`
	CashbackAmount  int64  `json:"cashbackAmount"`
	Balance         int64  `json:"balance"`
	CounterIBAN     string `json:"counterIban"`
	CounterName     string `json:"counterName"`

	// Account is the account the item was fetched for. It is attached by
	// the fetcher and is not part of the bank's JSON payload.
	Account Account `json:"-"`
}

// Date returns the statement timestamp as local time.
func (s StatementItem) Date() time.Time {
	return time.Unix(s.Time, 0)
}

// HasExchange reports whether a currency conversion occurred for this item.
func (s StatementItem) HasExchange() bool {
	return s.Amount != s.OperationAmount
}

// MergedTransfer is a synthetic record produced by the cross-card merge
// engine. It folds a multi-hop internal transfer into a single transfer
// between the true source and destination accounts. Source is the item on
// the originating account, Destination the item on the receiving account;
// any intermediate hops are discarded during merging.
type MergedTransfer struct {
	Source      StatementItem
	Destination StatementItem
}

// Date returns the transfer date, taken from the destination side.
func (m MergedTransfer) Date() time.Time {
	return m.Destination.Date()
}
