// Package sheetsync talks to the spreadsheet-backed web API that mirrors the
// RT books, and to the Google Sheets change log.
package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/rt-lending/internal/core/events"
	"github.com/frahmantamala/rt-lending/internal/store"
)

const maxSnapshotBytes = 16 << 20

type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts change notifications to the web API and reads bulk
// snapshots back from it.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		url:        cfg.URL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type notification struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

func (c *Client) Name() string {
	return "sheet-api"
}

// Deliver posts {action, payload}. The body of the response is not read;
// only the status code is checked.
func (c *Client) Deliver(ctx context.Context, event *events.ChangeEvent) error {
	body, err := json.Marshal(notification{Action: event.Action, Payload: event.Payload()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	c.logger.Debug("sheet api notified",
		"action", event.Action,
		"entity_id", event.EntityID,
		"status_code", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sheet api returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchAll reads the full loan book and ledger from the web API.
func (c *Client) FetchAll(ctx context.Context) (store.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return store.Snapshot{}, fmt.Errorf("sheet api returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := DecodeSnapshot(data, c.logger)
	if err != nil {
		return store.Snapshot{}, err
	}

	c.logger.Info("snapshot fetched from sheet api",
		"loans", len(snap.Loans),
		"transactions", len(snap.Transactions))
	return snap, nil
}
