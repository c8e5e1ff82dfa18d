// Package videos fetches the short-video feed and caches it in memory
// for a fixed window shared process-wide, so every client instance sees
// the same copy and the feed endpoint is not hammered on navigation.
package videos

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"regexp"
	"sync"
	"time"
)

// MsgFetchFailed is the user-facing message when the feed cannot be
// loaded and no cached copy exists.
const MsgFetchFailed = "Failed to load videos"

// DefaultCacheTTL is the feed cache window.
const DefaultCacheTTL = 5 * time.Minute

// Video is one playable feed entry. VideoID is derived from Link; rows
// whose link matches none of the known URL shapes are dropped.
type Video struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Link    string `json:"link"`
	VideoID string `json:"video_id"`
}

// feedItem is the raw row shape the endpoint returns.
type feedItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// Result is the outcome of a feed fetch.
type Result struct {
	Videos       []Video `json:"videos"`
	FromCache    bool    `json:"cached"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{6,})`),
}

// ExtractVideoID derives the playable video id from a feed link.
func ExtractVideoID(link string) (string, bool) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(link); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// cache is the process-wide feed cache. The shuffled order is stored, so
// fetches within the window return identical content and ordering.
type cache struct {
	mu        sync.Mutex
	videos    []Video
	fetchedAt time.Time
}

var sharedCache = &cache{}

func (c *cache) get(ttl time.Duration) ([]Video, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) > ttl {
		return nil, false
	}
	return append([]Video(nil), c.videos...), true
}

// lastGood returns the cached copy even when the window has expired.
func (c *cache) lastGood() ([]Video, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchedAt.IsZero() {
		return nil, false
	}
	return append([]Video(nil), c.videos...), true
}

func (c *cache) put(videos []Video) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos = append([]Video(nil), videos...)
	c.fetchedAt = time.Now()
}

func (c *cache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos = nil
	c.fetchedAt = time.Time{}
}

// Client fetches the video feed.
type Client struct {
	httpClient *http.Client
	endpoint   string
	cacheTTL   time.Duration
	cache      *cache
}

// NewClient creates a feed client. All clients share the process-wide
// cache.
func NewClient(endpoint string, cacheTTL time.Duration) *Client {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		endpoint: endpoint,
		cacheTTL: cacheTTL,
		cache:    sharedCache,
	}
}

// Fetch returns the feed. Within the cache window and not forced, the
// cached copy comes back with identical content and order and no network
// call is made. On a failed fetch the last good cache is returned if one
// exists, otherwise an empty list with an error message.
func (c *Client) Fetch(ctx context.Context, forceRefresh bool) Result {
	if !forceRefresh {
		if cached, ok := c.cache.get(c.cacheTTL); ok {
			return Result{Videos: cached, FromCache: true}
		}
	}

	videos, err := c.fetch(ctx)
	if err != nil {
		log.Printf("Videos: fetch failed: %v", err)
		if cached, ok := c.cache.lastGood(); ok {
			return Result{Videos: cached, FromCache: true, ErrorMessage: MsgFetchFailed}
		}
		return Result{Videos: []Video{}, ErrorMessage: MsgFetchFailed}
	}

	c.cache.put(videos)
	return Result{Videos: videos}
}

func (c *Client) fetch(ctx context.Context) ([]Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var items []feedItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	videos := make([]Video, 0, len(items))
	for _, item := range items {
		videoID, ok := ExtractVideoID(item.Link)
		if !ok {
			continue
		}
		videos = append(videos, Video{
			ID:      item.ID,
			Name:    item.Name,
			Link:    item.Link,
			VideoID: videoID,
		})
	}

	// Shuffle once per fetch; the cache keeps this order for the window.
	rand.Shuffle(len(videos), func(i, j int) {
		videos[i], videos[j] = videos[j], videos[i]
	})
	return videos, nil
}
