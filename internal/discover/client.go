// Package discover fetches curated quotes for a category from the public
// quotes API. The client keeps the outcome of the last fetch (quotes,
// error message, loading flag) and maps every failure to a small closed
// set of user-facing messages. A fetch started while one is in flight is
// dropped, not queued.
package discover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CategoryQuoteOfTheDay selects the single curated quote-of-the-day
// endpoint instead of a category listing.
const CategoryQuoteOfTheDay = "quoteOfTheDay"

// User-facing messages for the closed error set.
const (
	MsgInvalidURL   = "Invalid URL"
	MsgDecodeFailed = "Failed to decode server response"
	MsgNoConnection = "No internet connection"
	MsgTimeout      = "Request timed out"
	MsgUnknown      = "Something went wrong"
)

// ErrFetchInProgress reports that a fetch was dropped because another one
// is still running.
var ErrFetchInProgress = errors.New("fetch already in progress")

// DiscoveredQuote is one row of the discovery feed.
type DiscoveredQuote struct {
	Quote      string   `json:"quote"`
	Author     string   `json:"author"`
	Work       string   `json:"work,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Result is a snapshot of the client state after a fetch. ErrorMessage is
// empty on success; on failure Quotes is always empty.
type Result struct {
	Quotes       []DiscoveredQuote `json:"quotes"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Client fetches quotes for one category at a time.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int

	loading atomic.Bool

	mu           sync.Mutex
	quotes       []DiscoveredQuote
	errorMessage string
}

// NewClient creates a discovery client. pageSize bounds the number of
// quotes requested per category fetch.
func NewClient(baseURL, apiKey string, pageSize int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
	}
}

// Fetch loads quotes for the category and replaces the client state with
// the outcome. It returns ErrFetchInProgress, leaving the state alone,
// when another fetch is still running.
func (c *Client) Fetch(ctx context.Context, category string) (Result, error) {
	if !c.loading.CompareAndSwap(false, true) {
		return Result{}, ErrFetchInProgress
	}
	defer c.loading.Store(false)

	quotes, errMsg := c.fetch(ctx, category)

	c.mu.Lock()
	c.quotes = quotes
	c.errorMessage = errMsg
	c.mu.Unlock()

	if errMsg != "" {
		log.Printf("Discover: fetch %q failed: %s", category, errMsg)
	}
	return Result{Quotes: quotes, ErrorMessage: errMsg}, nil
}

// State returns the outcome of the last fetch without touching the
// network.
func (c *Client) State() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{Quotes: c.quotes, ErrorMessage: c.errorMessage}
}

// IsLoading reports whether a fetch is currently running.
func (c *Client) IsLoading() bool {
	return c.loading.Load()
}

func (c *Client) fetch(ctx context.Context, category string) ([]DiscoveredQuote, string) {
	endpoint, err := c.endpointURL(category)
	if err != nil {
		return []DiscoveredQuote{}, MsgInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return []DiscoveredQuote{}, MsgInvalidURL
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return []DiscoveredQuote{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return []DiscoveredQuote{}, fmt.Sprintf("Server error: %d", resp.StatusCode)
	}

	var quotes []DiscoveredQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return []DiscoveredQuote{}, MsgDecodeFailed
	}
	if quotes == nil {
		quotes = []DiscoveredQuote{}
	}
	return quotes, ""
}

// endpointURL builds the per-category URL: the quote of the day has its
// own endpoint, everything else is a category listing.
func (c *Client) endpointURL(category string) (string, error) {
	base := strings.TrimSuffix(c.baseURL, "/")
	var raw string
	if category == CategoryQuoteOfTheDay {
		raw = base + "/qotd"
	} else {
		raw = base + "/quotes/" + url.PathEscape(category)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", raw)
	}

	if c.pageSize > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(c.pageSize))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// classifyTransportError maps transport failures onto the closed message
// set. Timeouts are checked first: a timed-out connection error is still
// a timeout to the user.
func classifyTransportError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return MsgTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return MsgNoConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return MsgNoConnection
	}

	return MsgUnknown
}
