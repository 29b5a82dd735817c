// Package fetcher schedules statement fetches against the bank API. It
// partitions the requested time range into intervals the API accepts,
// backs off globally on rate limits and bisects intervals whose responses
// look truncated.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/api"
	"github.com/ipvych/mono2ledger/internal/models"
)

const (
	// MaxIntervalDays is the longest time range a single statement request
	// may cover.
	MaxIntervalDays = 31
	// TruncationLimit is the response size at which the API is assumed to
	// have silently truncated the result.
	TruncationLimit = 500
	// RateLimitBackoff is how long to wait after a 429 before retrying.
	// The limit applies to the API credential as a whole, so the whole
	// pipeline blocks, not just the failing request.
	RateLimitBackoff = 60 * time.Second
)

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Client is the subset of the bank API the scheduler needs.
type Client interface {
	ListStatements(ctx context.Context, accountID string, from, to time.Time) ([]models.StatementItem, error)
}

// Scheduler fetches statements for a set of accounts over a time range.
type Scheduler struct {
	client Client
	// sleep is replaceable so tests do not wait out real backoffs.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a Scheduler for the given client.
func NewScheduler(client Client) *Scheduler {
	return &Scheduler{client: client, sleep: sleepContext}
}

type interval struct {
	from, to time.Time
}

func (iv interval) String() string {
	return fmt.Sprintf("%s..%s", iv.from.Format("2006-01-02"), iv.to.Format("2006-01-02"))
}

// errTruncated signals that a response hit TruncationLimit and the
// interval must be bisected instead of trusting the result.
var errTruncated = errors.New("statement response truncated")

// Fetch retrieves all statement items for the accounts in [from, to]. Each
// returned item carries the account it was fetched for. The order of items
// across accounts and intervals is unspecified; callers must sort.
func (s *Scheduler) Fetch(ctx context.Context, accounts []models.Account, from, to time.Time) ([]models.StatementItem, error) {
	// An explicit work queue instead of recursion: rate-limit retries and
	// bisection both re-queue intervals, and pathological inputs must not
	// grow the stack.
	queue := splitInterval(from, to)

	var items []models.StatementItem
	for len(queue) > 0 {
		iv := queue[0]
		queue = queue[1:]

		fetched, err := s.fetchInterval(ctx, accounts, iv)
		switch {
		case errors.Is(err, errTruncated):
			mid := iv.from.Add(iv.to.Sub(iv.from) / 2)
			log.WithFields(logrus.Fields{
				"interval": iv.String(),
				"mid":      mid.Format("2006-01-02"),
			}).Info("Response too large, bisecting interval")
			queue = append([]interval{{iv.from, mid}, {mid, iv.to}}, queue...)
		case err != nil:
			return nil, err
		default:
			items = append(items, fetched...)
		}
	}
	return items, nil
}

// fetchInterval fetches one interval for every account. A rate limit
// discards the interval's partial results, sleeps and restarts the
// interval for all accounts: the bank throttles the credential, not the
// individual request.
func (s *Scheduler) fetchInterval(ctx context.Context, accounts []models.Account, iv interval) ([]models.StatementItem, error) {
	for {
		items, err := s.fetchIntervalOnce(ctx, accounts, iv)
		if !errors.Is(err, api.ErrRateLimited) {
			return items, err
		}
		log.WithField("interval", iv.String()).Info("Rate limited, waiting before retrying interval for all accounts")
		if err := s.sleep(ctx, RateLimitBackoff); err != nil {
			return nil, err
		}
	}
}

func (s *Scheduler) fetchIntervalOnce(ctx context.Context, accounts []models.Account, iv interval) ([]models.StatementItem, error) {
	var items []models.StatementItem
	for _, account := range accounts {
		fetched, err := s.client.ListStatements(ctx, account.ID, iv.from, iv.to)
		if err != nil {
			return nil, err
		}
		if len(fetched) >= TruncationLimit {
			return nil, errTruncated
		}
		for i := range fetched {
			fetched[i].Account = account
		}
		items = append(items, fetched...)
		log.WithFields(logrus.Fields{
			"account":  account.ID,
			"interval": iv.String(),
			"count":    len(fetched),
		}).Info("Fetched statements for account")
	}
	return items, nil
}

// splitInterval walks forward from from in fixed MaxIntervalDays steps,
// clipping the final interval to to.
func splitInterval(from, to time.Time) []interval {
	step := MaxIntervalDays * 24 * time.Hour
	var intervals []interval
	for cur := from; cur.Before(to); cur = cur.Add(step) {
		end := cur.Add(step)
		if end.After(to) {
			end = to
		}
		intervals = append(intervals, interval{cur, end})
	}
	return intervals
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
