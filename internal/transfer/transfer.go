// Package transfer detects cross-card transfers and folds them into single
// synthetic records. The bank represents an internal transfer routed
// through an intermediate currency account as three or more separate
// statement items sharing one transfer MCC; left alone they would show up
// as unrelated ledger entries instead of one transfer with an exchange
// rate.
package transfer

import (
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/models"
)

// CrossCardMCC is the merchant category code the bank uses for card
// transfers.
const CrossCardMCC = 4829

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Role is the position of a statement item within a cross-card transfer.
type Role int

const (
	// RoleUnmatched marks an item that is not part of a cross-card
	// transfer. It is emitted as-is; ordinary transfers to foreign cards
	// share the transfer MCC and land here.
	RoleUnmatched Role = iota
	// RoleStart marks funds leaving the true source account.
	RoleStart
	// RoleEnd marks funds arriving at the true destination account.
	RoleEnd
	// RoleTransitive marks an intermediate hop that is discarded.
	RoleTransitive
)

// Classifier assigns a Role to a statement item. The merge state machine
// is independent of how roles are determined, so heuristics over statement
// text can be swapped for structural identifiers if the bank ever provides
// them.
type Classifier func(models.StatementItem) Role

// The bank labels cross-card hops with fixed localized phrases: the source
// card sends "to the <currency> account", the destination card receives
// "from the <currency> account" and the intermediate account names the
// user's own card. The phrase match is deliberately conservative: a missed
// merge produces a correct but less tidy ledger, a false merge would
// silently drop two real entries.
var (
	startPattern      = regexp.MustCompile(`(?i)на (гривневий|доларовий|євровий) рахунок`)
	endPattern        = regexp.MustCompile(`(?i)з (гривневого|доларового|єврового) рахунку`)
	transitivePattern = regexp.MustCompile(`(?i)(на|з) (чорн|біл)(у|ої) картк`)
)

// NewClassifier builds the default phrase-based Classifier. When a
// statement carries the counter-party IBAN of one of the user's own
// accounts the role follows the amount sign instead of the description.
func NewClassifier(accounts []models.Account) Classifier {
	ownIBANs := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		if a.IBAN != "" {
			ownIBANs[a.IBAN] = struct{}{}
		}
	}

	return func(item models.StatementItem) Role {
		if item.MCC != CrossCardMCC {
			return RoleUnmatched
		}
		if _, ok := ownIBANs[item.CounterIBAN]; ok {
			if item.Amount < 0 {
				return RoleStart
			}
			return RoleEnd
		}
		switch {
		case startPattern.MatchString(item.Description):
			return RoleStart
		case endPattern.MatchString(item.Description):
			return RoleEnd
		case transitivePattern.MatchString(item.Description):
			return RoleTransitive
		}
		return RoleUnmatched
	}
}

// Entry is one output record of the merge engine: either a plain
// statement item or a merged transfer.
type Entry struct {
	Statement models.StatementItem
	Merged    *models.MergedTransfer
}

// Merge scans items, which must be sorted by ascending timestamp, and
// folds detected cross-card transfers into single entries. All other items
// pass through unchanged, in order.
//
// The engine keeps two slots. A start item overwrites any unconsumed
// start; the first end item wins until the pair is flushed. Transitive
// items are dropped. Any unmatched item flushes an occupied pair before
// being emitted itself, and a pending pair is flushed at end of stream. A
// slot still holding a lone start or end at end of stream is emitted as a
// plain statement so no entry is ever lost.
func Merge(items []models.StatementItem, classify Classifier) []Entry {
	var entries []Entry
	var start, end *models.StatementItem

	flush := func() {
		if start != nil && end != nil {
			log.WithFields(logrus.Fields{
				"source":      start.Description,
				"destination": end.Description,
			}).Debug("Merged cross-card transfer")
			entries = append(entries, Entry{Merged: &models.MergedTransfer{
				Source:      *start,
				Destination: *end,
			}})
			start, end = nil, nil
		}
	}

	for i := range items {
		item := items[i]
		switch classify(item) {
		case RoleStart:
			start = &item
		case RoleEnd:
			if end == nil {
				end = &item
			}
		case RoleTransitive:
			// Intermediate hop, discarded.
		default:
			flush()
			entries = append(entries, Entry{Statement: item})
		}
	}
	flush()

	// Lone leftovers could not be paired; emit them unmerged, oldest first.
	var leftovers []*models.StatementItem
	if start != nil {
		leftovers = append(leftovers, start)
	}
	if end != nil {
		leftovers = append(leftovers, end)
	}
	if len(leftovers) == 2 && leftovers[0].Time > leftovers[1].Time {
		leftovers[0], leftovers[1] = leftovers[1], leftovers[0]
	}
	for _, item := range leftovers {
		entries = append(entries, Entry{Statement: *item})
	}

	return entries
}
