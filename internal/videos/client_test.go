package videos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveFeed(t *testing.T, requests *atomic.Int64, items []feedItem) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(items))
	}))
	t.Cleanup(server.Close)
	return server
}

func feedFixture() []feedItem {
	return []feedItem{
		{ID: "1", Name: "Morning focus", Link: "https://youtu.be/abc123xyz"},
		{ID: "2", Name: "Deep work", Link: "https://www.youtube.com/watch?v=def456uvw"},
		{ID: "3", Name: "Stoic minute", Link: "https://www.youtube.com/embed/ghi789rst"},
		{ID: "4", Name: "Daily stillness", Link: "https://www.youtube.com/shorts/jkl012opq"},
		{ID: "5", Name: "Evening recap", Link: "https://youtu.be/mno345lmn"},
		{ID: "6", Name: "Breathing drill", Link: "https://www.youtube.com/watch?v=pqr678ijk"},
	}
}

func TestFetchCachesWithinWindow(t *testing.T) {
	sharedCache.reset()

	var requests atomic.Int64
	server := serveFeed(t, &requests, feedFixture())
	client := NewClient(server.URL, time.Minute)

	first := client.Fetch(context.Background(), false)
	require.Empty(t, first.ErrorMessage)
	require.Len(t, first.Videos, 6)
	assert.False(t, first.FromCache)

	second := client.Fetch(context.Background(), false)
	require.Empty(t, second.ErrorMessage)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Videos, second.Videos)
	assert.Equal(t, int64(1), requests.Load())
}

func TestFetchSharesCacheAcrossClients(t *testing.T) {
	sharedCache.reset()

	var requests atomic.Int64
	server := serveFeed(t, &requests, feedFixture())

	first := NewClient(server.URL, time.Minute).Fetch(context.Background(), false)
	second := NewClient(server.URL, time.Minute).Fetch(context.Background(), false)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.Videos, second.Videos)
	assert.Equal(t, int64(1), requests.Load())
}

func TestForceRefreshBypassesCache(t *testing.T) {
	sharedCache.reset()

	var requests atomic.Int64
	server := serveFeed(t, &requests, feedFixture())
	client := NewClient(server.URL, time.Minute)

	client.Fetch(context.Background(), false)
	refreshed := client.Fetch(context.Background(), true)

	require.Empty(t, refreshed.ErrorMessage)
	assert.False(t, refreshed.FromCache)
	assert.Equal(t, int64(2), requests.Load())
}

func TestFetchRefetchesAfterWindowExpires(t *testing.T) {
	sharedCache.reset()

	var requests atomic.Int64
	server := serveFeed(t, &requests, feedFixture())
	client := NewClient(server.URL, 20*time.Millisecond)

	client.Fetch(context.Background(), false)
	time.Sleep(50 * time.Millisecond)

	again := client.Fetch(context.Background(), false)
	require.Empty(t, again.ErrorMessage)
	assert.False(t, again.FromCache)
	assert.Equal(t, int64(2), requests.Load())
}

func TestFetchFailureFallsBackToCache(t *testing.T) {
	sharedCache.reset()

	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(feedFixture()))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute)
	first := client.Fetch(context.Background(), false)
	require.Empty(t, first.ErrorMessage)

	failing.Store(true)
	fallback := client.Fetch(context.Background(), true)

	assert.Equal(t, MsgFetchFailed, fallback.ErrorMessage)
	assert.True(t, fallback.FromCache)
	assert.Equal(t, first.Videos, fallback.Videos)
}

func TestFetchFailureWithEmptyCache(t *testing.T) {
	sharedCache.reset()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := NewClient(server.URL, time.Minute).Fetch(context.Background(), false)

	assert.Equal(t, MsgFetchFailed, result.ErrorMessage)
	assert.False(t, result.FromCache)
	assert.Empty(t, result.Videos)
	assert.NotNil(t, result.Videos)
}

func TestFetchDropsRowsWithoutVideoID(t *testing.T) {
	sharedCache.reset()

	items := []feedItem{
		{ID: "1", Name: "Playable", Link: "https://youtu.be/abc123xyz"},
		{ID: "2", Name: "Homepage link", Link: "https://www.youtube.com"},
		{ID: "3", Name: "Not a video site", Link: "https://example.com/watch?x=1"},
	}
	var requests atomic.Int64
	server := serveFeed(t, &requests, items)

	result := NewClient(server.URL, time.Minute).Fetch(context.Background(), false)

	require.Empty(t, result.ErrorMessage)
	require.Len(t, result.Videos, 1)
	assert.Equal(t, "abc123xyz", result.Videos[0].VideoID)
	assert.Equal(t, "Playable", result.Videos[0].Name)
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		link   string
		wantID string
		wantOK bool
	}{
		{
			name:   "short link",
			link:   "https://youtu.be/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "watch query parameter",
			link:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "watch with extra parameters",
			link:   "https://www.youtube.com/watch?feature=shared&v=dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "embed path",
			link:   "https://www.youtube.com/embed/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "shorts path",
			link:   "https://www.youtube.com/shorts/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "channel page",
			link:   "https://www.youtube.com/@somechannel",
			wantOK: false,
		},
		{
			name:   "unrelated site",
			link:   "https://example.com/v=dQw4w9WgXcQ",
			wantOK: false,
		},
		{
			name:   "empty link",
			link:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractVideoID(tt.link)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
