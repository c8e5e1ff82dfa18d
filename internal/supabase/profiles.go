package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ProfileRow is a row of the remote profiles table, keyed by the auth user
// ID. Rows are provisioned lazily on first sign-in.
type ProfileRow struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// GetProfile fetches the profile row for a user, or ErrNotFound when the
// account has none yet.
func (c *Client) GetProfile(ctx context.Context, session *Session, userID string) (*ProfileRow, error) {
	getURL := fmt.Sprintf("%s?id=eq.%s&select=*", c.restURL("profiles"), url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, session.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, restError(resp)
	}

	var rows []ProfileRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// CreateProfile inserts the initial profile row for a freshly signed-in
// account.
func (c *Client) CreateProfile(ctx context.Context, session *Session, profile ProfileRow) (*ProfileRow, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.restURL("profiles"), profile)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, session.AccessToken)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, restError(resp)
	}

	var rows []ProfileRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile insert returned no rows")
	}
	return &rows[0], nil
}
