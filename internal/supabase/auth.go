package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Session is an authenticated backend session as returned by GoTrue.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// ExpiryTime converts the session's expiry to a wall-clock time, falling
// back to ExpiresIn when the server omits the absolute form.
func (s *Session) ExpiryTime() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
}

// User identifies the account a session belongs to.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authErrorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (p authErrorPayload) text() string {
	for _, s := range []string{p.ErrorDescription, p.Msg, p.Message, p.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges an email/password pair for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.authURL("token?grant_type=password"), payload)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var payload authErrorPayload
		_ = json.Unmarshal(body, &payload)
		return nil, fmt.Errorf("sign-in failed with status %d: %s", resp.StatusCode, payload.text())
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &session, nil
}

// Refresh exchanges a refresh token for a fresh session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.authURL("token?grant_type=refresh_token"), payload)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, ErrSessionExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, &ServerError{StatusCode: resp.StatusCode}
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("refresh failed with status %d: %s", resp.StatusCode, string(body))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &session, nil
}

// GetUser resolves the account behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL("user"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrSessionMissing
	}
	if resp.StatusCode != http.StatusOK {
		return nil, restError(resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session server-side. A backend that already forgot
// the session reports ErrSessionMissing, which callers suppress.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL("logout"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ErrSessionMissing
	default:
		if resp.StatusCode >= 500 {
			return &ServerError{StatusCode: resp.StatusCode}
		}
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sign-out failed with status %d: %s", resp.StatusCode, string(body))
	}
}
