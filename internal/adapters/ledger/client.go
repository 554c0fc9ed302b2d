// Package ledger talks to a YNAB-style budgeting API: it fetches
// transactions and writes memo updates.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/datemath"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// ErrNotFound is returned when the ledger does not know a transaction
var ErrNotFound = errors.New("ledger transaction not found")

// ErrUnauthorized is returned when the API token is missing or rejected
var ErrUnauthorized = errors.New("ledger API rejected credentials")

// RequestObserver receives one call per completed HTTP request
type RequestObserver interface {
	ObserveLedgerRequest(method string, status int, elapsed time.Duration)
}

// Config configures the ledger client
type Config struct {
	BaseURL    string
	Token      string
	BudgetID   string
	MaxRetries int
	Timeout    time.Duration
	// MinInterval spaces requests at least this far apart; zero disables
	// client-side rate limiting
	MinInterval time.Duration
}

// Client is a ledger API client
type Client struct {
	baseURL  string
	token    string
	budgetID string
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer RequestObserver
}

// NewClient creates a new ledger client
func NewClient(cfg Config, logger *slog.Logger, observer RequestObserver) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BudgetID == "" {
		cfg.BudgetID = "last-used"
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.MaxRetries
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	httpClient.HTTPClient.Timeout = cfg.Timeout
	httpClient.Logger = logger

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		budgetID: cfg.BudgetID,
		http:     httpClient,
		limiter:  limiter,
		logger:   logger.With(slog.String("system", "ledger")),
		observer: observer,
	}
}

// FetchTransactions returns non-deleted transactions dated on or after
// since. Unparseable dates and missing amounts are passed through as
// zero values so the matcher can score them as no-match.
func (c *Client) FetchTransactions(ctx context.Context, since time.Time) ([]model.Transaction, error) {
	endpoint := fmt.Sprintf("%s/budgets/%s/transactions", c.baseURL, url.PathEscape(c.budgetID))
	if !since.IsZero() {
		endpoint += "?since_date=" + since.Format("2006-01-02")
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	var resp transactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse transactions response: %w", err)
	}

	txs := make([]model.Transaction, 0, len(resp.Data.Transactions))
	for _, dto := range resp.Data.Transactions {
		if dto.Deleted {
			continue
		}
		txs = append(txs, toTransaction(dto))
	}

	c.logger.Debug("fetched transactions",
		slog.Int("count", len(txs)),
		slog.String("since", since.Format("2006-01-02")))
	return txs, nil
}

// UpdateMemo replaces the memo of one transaction. It reports whether the
// ledger accepted the change.
func (c *Client) UpdateMemo(ctx context.Context, transactionID, memo string) (bool, error) {
	endpoint := fmt.Sprintf("%s/budgets/%s/transactions/%s",
		c.baseURL, url.PathEscape(c.budgetID), url.PathEscape(transactionID))

	payload, err := json.Marshal(updateTransactionRequest{Transaction: memoPatch{Memo: memo}})
	if err != nil {
		return false, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return false, fmt.Errorf("failed to update memo for %s: %w", transactionID, err)
	}

	var resp transactionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to parse update response: %w", err)
	}

	got := ""
	if resp.Data.Transaction.Memo != nil {
		got = *resp.Data.Transaction.Memo
	}
	return resp.Data.Transaction.ID == transactionID && got == memo, nil
}

// do executes a request, mapping error statuses to errors
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.observer != nil {
		c.observer.ObserveLedgerRequest(method, resp.StatusCode, time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Detail != "" {
			return nil, fmt.Errorf("ledger API error: %s (id: %s)", errResp.Error.Detail, errResp.Error.ID)
		}
		return nil, fmt.Errorf("ledger API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func toTransaction(dto transactionDTO) model.Transaction {
	tx := model.Transaction{
		ID:        dto.ID,
		Date:      datemath.Parse(dto.Date),
		PayeeName: dto.PayeeName,
	}
	if dto.Amount != nil {
		tx.Amount = model.Amount(model.FromMilliunits(*dto.Amount))
	}
	if dto.Memo != nil {
		tx.Memo = *dto.Memo
	}
	return tx
}
