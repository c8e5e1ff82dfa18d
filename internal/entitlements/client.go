// Package entitlements resolves premium access through the billing API.
// Verdicts are cached in memory so the route gate does not call out on
// every request; auth state changes reset the cache.
package entitlements

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a verdict is trusted before the billing
// API is asked again.
const DefaultCacheTTL = 5 * time.Minute

// entitlementRow is one entry of the subscriber's entitlements map. A
// nil ExpiresDate means a non-expiring purchase.
type entitlementRow struct {
	ExpiresDate       *time.Time `json:"expires_date"`
	ProductIdentifier string     `json:"product_identifier"`
}

type subscriberResponse struct {
	Subscriber struct {
		Entitlements map[string]entitlementRow `json:"entitlements"`
	} `json:"subscriber"`
}

type verdict struct {
	active  bool
	staleAt time.Time
}

// Client checks entitlements against the billing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]verdict
}

// NewClient creates a billing client. An empty apiKey leaves the gate
// open, which is the development mode.
func NewClient(baseURL, apiKey string, cacheTTL time.Duration) *Client {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	if apiKey == "" {
		log.Printf("Entitlements: no billing API key configured, gate is open")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  baseURL,
		apiKey:   apiKey,
		cacheTTL: cacheTTL,
		cache:    make(map[string]verdict),
	}
}

// Active reports whether the entitlement is live for the user: present
// in the subscriber's entitlements map with expires_date in the future
// or absent. Failures are not cached.
func (c *Client) Active(ctx context.Context, userID, entitlement string) (bool, error) {
	if c.apiKey == "" {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	key := userID + "\x00" + entitlement
	c.mu.Lock()
	if v, ok := c.cache[key]; ok && time.Now().Before(v.staleAt) {
		c.mu.Unlock()
		return v.active, nil
	}
	c.mu.Unlock()

	active, err := c.fetch(ctx, userID, entitlement)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.cache[key] = verdict{active: active, staleAt: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()
	return active, nil
}

// Reset drops all cached verdicts. Called on auth state changes so a
// fresh sign-in is checked against the billing API, not a stale cache.
func (c *Client) Reset() {
	c.mu.Lock()
	c.cache = make(map[string]verdict)
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, userID, entitlement string) (bool, error) {
	endpoint := strings.TrimSuffix(c.baseURL, "/") + "/subscribers/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("billing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("billing api returned status %d", resp.StatusCode)
	}

	var payload subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode billing response: %w", err)
	}

	row, ok := payload.Subscriber.Entitlements[entitlement]
	if !ok {
		return false, nil
	}
	return row.ExpiresDate == nil || row.ExpiresDate.After(time.Now()), nil
}
