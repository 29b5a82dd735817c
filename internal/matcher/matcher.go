// Package matcher resolves an ordered rule set against statement items to
// determine their ledger destination account and payee.
package matcher

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/models"
)

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Action is the resolved classification for one statement item. Every
// field is always populated: when no rule matches, or a matching rule
// leaves a field unset, the documented defaults apply.
type Action struct {
	LedgerAccount       string
	Payee               string
	SourceAccountSuffix string
	Ignore              bool
}

type rule struct {
	mccs     map[int]struct{}
	patterns []*regexp.Regexp

	ledgerAccount       string
	payee               string
	sourceAccountSuffix string
	ignore              bool
}

func (r *rule) matches(item models.StatementItem) bool {
	if _, ok := r.mccs[item.MCC]; ok {
		return true
	}
	for _, p := range r.patterns {
		if p.MatchString(item.Description) {
			return true
		}
	}
	return false
}

// Engine classifies statement items against an ordered rule set. It is a
// pure function of (statement, rule list): no state, no side effects.
type Engine struct {
	rules []rule
}

// Compile builds an Engine from configured matchers, compiling every
// description regex. An invalid regex is a configuration error.
func Compile(matchers []config.Matcher) (*Engine, error) {
	e := &Engine{rules: make([]rule, 0, len(matchers))}
	for i, m := range matchers {
		r := rule{
			mccs:                make(map[int]struct{}, len(m.MCC)),
			ledgerAccount:       m.LedgerAccount,
			payee:               m.Payee,
			sourceAccountSuffix: m.SourceAccountSuffix,
			ignore:              m.Ignore,
		}
		for _, mcc := range m.MCC {
			r.mccs[mcc] = struct{}{}
		}
		for _, expr := range m.DescriptionRegex {
			p, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid description regex %q in matcher %d: %w", expr, i+1, err)
			}
			r.patterns = append(r.patterns, p)
		}
		e.rules = append(e.rules, r)
	}
	return e, nil
}

// Match returns the action of the first rule whose MCC set or description
// regexes match the item. Predicate fields combine with OR; an empty field
// simply is not checked. Actions from multiple partially matching rules
// are never merged.
func (e *Engine) Match(item models.StatementItem) Action {
	for i := range e.rules {
		r := &e.rules[i]
		if !r.matches(item) {
			continue
		}
		action := Action{
			LedgerAccount:       r.ledgerAccount,
			Payee:               r.payee,
			SourceAccountSuffix: r.sourceAccountSuffix,
			Ignore:              r.ignore,
		}
		applyDefaults(&action, item)
		return action
	}

	log.WithFields(logrus.Fields{
		"mcc":         item.MCC,
		"description": item.Description,
	}).Warn("No matcher for statement, using default expense account")
	action := Action{}
	applyDefaults(&action, item)
	return action
}

// applyDefaults fills unset action fields. The default ledger account is
// unique per statement so unmatched entries stay auditable.
func applyDefaults(a *Action, item models.StatementItem) {
	if a.LedgerAccount == "" {
		a.LedgerAccount = fmt.Sprintf("Expenses:Mono2ledger:%s:%s", item.Account.ID, item.ID)
	}
	if a.Payee == "" {
		a.Payee = item.Description
	}
}
