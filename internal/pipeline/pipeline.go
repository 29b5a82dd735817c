// Package pipeline wires the import stages together: checkpoint scan,
// statement fetch, cross-card merge, classification and formatting.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/checkpoint"
	"github.com/ipvych/mono2ledger/internal/config"
	"github.com/ipvych/mono2ledger/internal/currency"
	"github.com/ipvych/mono2ledger/internal/fetcher"
	"github.com/ipvych/mono2ledger/internal/ledger"
	"github.com/ipvych/mono2ledger/internal/matcher"
	"github.com/ipvych/mono2ledger/internal/models"
	"github.com/ipvych/mono2ledger/internal/transfer"
)

// headerTimestampLayout formats the run timestamp in the output header.
const headerTimestampLayout = "2006-01-02 15:04:05"

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Client is the bank API surface the pipeline needs.
type Client interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListStatements(ctx context.Context, accountID string, from, to time.Time) ([]models.StatementItem, error)
}

// Run executes one full import: it finds the resume point in ledgerFile,
// fetches statements for all non-ignored accounts since then, merges
// cross-card transfers, classifies and formats everything, and writes the
// result to out in a single call so an interrupted run never leaves
// partial output behind.
func Run(ctx context.Context, cfg *config.Config, client Client, ledgerFile io.Reader, out io.Writer, now time.Time) error {
	since, err := checkpoint.LastDate(ledgerFile, cfg.Settings.LedgerDateFormat, now.AddDate(0, 0, -30))
	if err != nil {
		return err
	}
	log.WithField("since", since.Format("2006-01-02")).Info("Resuming import from last recorded transaction date")

	engine, err := matcher.Compile(cfg.Matchers)
	if err != nil {
		return err
	}

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	fetchable := accounts[:0:0]
	for _, account := range accounts {
		if cfg.IsIgnored(account.ID) {
			continue
		}
		fetchable = append(fetchable, account)
	}

	items, err := fetcher.NewScheduler(client).Fetch(ctx, fetchable, since, now)
	if err != nil {
		return err
	}

	entries := MergeSorted(items, transfer.NewClassifier(accounts))
	blocks, err := Render(cfg, engine, entries)
	if err != nil {
		return err
	}
	return Write(out, blocks, now)
}

// MergeSorted sorts statement items chronologically and folds cross-card
// transfers. The fetcher gives no ordering guarantees, so sorting here is
// mandatory before merging.
func MergeSorted(items []models.StatementItem, classify transfer.Classifier) []transfer.Entry {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Time != items[j].Time {
			return items[i].Time < items[j].Time
		}
		return items[i].Amount < items[j].Amount
	})
	return transfer.Merge(items, classify)
}

// Render formats merge-engine entries as ledger transaction blocks,
// classifying plain statements through the matcher engine. Statements
// matched by an ignore rule produce no block.
func Render(cfg *config.Config, engine *matcher.Engine, entries []transfer.Entry) ([]string, error) {
	formatter := ledger.NewFormatter(cfg, currency.Table{})

	var blocks []string
	for _, entry := range entries {
		if entry.Merged != nil {
			block, err := formatter.FormatTransfer(*entry.Merged)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
			continue
		}

		action := engine.Match(entry.Statement)
		if action.Ignore {
			log.WithFields(logrus.Fields{
				"statement":   entry.Statement.ID,
				"description": entry.Statement.Description,
			}).Debug("Statement ignored by matcher rule")
			continue
		}
		block, err := formatter.FormatStatement(entry.Statement, action)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// Write emits the run output in one call: header comment, blank-line
// separated transaction blocks, footer comment.
func Write(out io.Writer, blocks []string, now time.Time) error {
	text := "\n" + ledger.Header(now.Format(headerTimestampLayout)) + "\n" +
		ledger.JoinBlocks(blocks) + "\n" + ledger.Footer()
	if _, err := io.WriteString(out, text); err != nil {
		return fmt.Errorf("failed to write ledger output: %w", err)
	}
	return nil
}
