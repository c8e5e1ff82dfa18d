package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// QuoteRow is a row of the remote quotes table. The remote copy is the
// cross-device source of truth; created_at and updated_at are assigned
// server-side and never pushed.
type QuoteRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Author     string    `json:"author,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	IsFavorite bool      `json:"is_favorite"`
	Timestamp  time.Time `json:"timestamp"`
}

// ListQuotes fetches the user's full remote collection, newest first.
// Transient failures (rate limits, 5xx) are retried with exponential
// backoff; everything else fails fast so the caller can abort the
// reconciliation pass.
func (c *Client) ListQuotes(ctx context.Context, session *Session) ([]QuoteRow, error) {
	listURL := fmt.Sprintf("%s?user_id=eq.%s&select=*&order=timestamp.desc",
		c.restURL("quotes"), url.QueryEscape(session.User.ID))

	var rows []QuoteRow
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateRetryDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		rows, lastErr = c.doListQuotes(ctx, listURL, session.AccessToken)
		if lastErr == nil {
			return rows, nil
		}

		if !isRetryableError(lastErr) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doListQuotes(ctx context.Context, listURL, accessToken string) ([]QuoteRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, restError(resp)
	}

	var rows []QuoteRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rows, nil
}

// UpsertQuote pushes the current local state of a record, inserting or
// overwriting the remote row by primary key.
func (c *Client) UpsertQuote(ctx context.Context, session *Session, row QuoteRow) (*QuoteRow, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.restURL("quotes"), row)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, session.AccessToken)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, restError(resp)
	}

	var rows []QuoteRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert returned no rows")
	}
	return &rows[0], nil
}

// DeleteQuote removes the remote row. Deleting a row that is already gone
// succeeds, which keeps outbox retries idempotent.
func (c *Client) DeleteQuote(ctx context.Context, session *Session, quoteID string) error {
	deleteURL := fmt.Sprintf("%s?id=eq.%s&user_id=eq.%s",
		c.restURL("quotes"), url.QueryEscape(quoteID), url.QueryEscape(session.User.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, session.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return restError(resp)
	}
	return nil
}

// UpdateQuoteTimestamp rewrites the remote row's recency key after a local
// promotion. The returned flag reports whether a remote row matched; a
// record whose initial push never landed matches nothing, and the caller
// falls back to a full upsert.
func (c *Client) UpdateQuoteTimestamp(ctx context.Context, session *Session, quoteID string, ts time.Time) (bool, error) {
	patchURL := fmt.Sprintf("%s?id=eq.%s&user_id=eq.%s",
		c.restURL("quotes"), url.QueryEscape(quoteID), url.QueryEscape(session.User.ID))

	payload := map[string]interface{}{"timestamp": ts.UTC().Format(time.RFC3339Nano)}
	req, err := c.newJSONRequest(ctx, http.MethodPatch, patchURL, payload)
	if err != nil {
		return false, err
	}
	c.setHeaders(req, session.AccessToken)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return false, restError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		// No representation to inspect; the caller takes the upsert path.
		return false, nil
	}

	var rows []QuoteRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return len(rows) > 0, nil
}
