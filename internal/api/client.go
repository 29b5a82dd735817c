// Package api provides a client for the Monobank personal API. Only the
// two endpoints the importer needs are wrapped: client-info (accounts) and
// per-account statements for a time range.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ipvych/mono2ledger/internal/models"
)

// DefaultBaseURL is the production Monobank API endpoint.
const DefaultBaseURL = "https://api.monobank.ua"

// ErrRateLimited is returned when the API answers with HTTP 429. The rate
// limit applies to the whole API credential, so callers are expected to
// back off globally before retrying.
var ErrRateLimited = errors.New("bank API rate limit exceeded")

// Error is a non-429 API failure. It carries the response body because the
// bank reports the failure reason there rather than in the status line.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bank API returned status %d: %s", e.Status, e.Body)
}

var log = logrus.New()

// SetLogger allows setting a custom logger for this package.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Client talks to the Monobank personal API using a personal token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL and personal token.
// An empty baseURL selects the production API.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListAccounts fetches the client info and returns all accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var result struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := c.get(ctx, "/personal/client-info", &result); err != nil {
		return nil, err
	}
	log.WithField("count", len(result.Accounts)).Debug("Fetched accounts")
	return result.Accounts, nil
}

// ListStatements fetches the statement items for one account in [from, to].
// The API caps a response at roughly 500 items without a continuation
// token; callers must detect truncation by the result count.
func (c *Client) ListStatements(ctx context.Context, accountID string, from, to time.Time) ([]models.StatementItem, error) {
	endpoint := fmt.Sprintf("/personal/statement/%s/%d/%d", accountID, from.Unix(), to.Unix())
	var items []models.StatementItem
	if err := c.get(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"account": accountID,
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"count":   len(items),
	}).Debug("Fetched statement")
	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bank API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Drain the body so the connection can be reused after backoff.
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode bank API response: %w", err)
	}
	return nil
}
