package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quotevault/internal/auth"
	"quotevault/internal/entities"
	"quotevault/internal/sync"
)

const (
	testUserID  = "11111111-1111-1111-1111-111111111111"
	testQuoteID = "7c3e9d5a-0b1f-4f6e-9d2c-8a4b5c6d7e8f"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser injects an authenticated identity the way the auth
// middleware would.
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(auth.ContextKeyUserID, userID)
		}
		c.Next()
	}
}

type fakeQuoteService struct {
	added      []string
	addErr     error
	deleted    []string
	deleteErr  error
	promoted   []string
	promoteErr error
	current    *entities.Quote
	currentErr error
}

func (f *fakeQuoteService) Add(ctx context.Context, text string) (*entities.Quote, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, text)
	return &entities.Quote{ID: testQuoteID, UserID: testUserID, Text: text, Timestamp: time.Now()}, nil
}

func (f *fakeQuoteService) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeQuoteService) Promote(ctx context.Context, id string) (*entities.Quote, error) {
	if f.promoteErr != nil {
		return nil, f.promoteErr
	}
	f.promoted = append(f.promoted, id)
	return &entities.Quote{ID: id, UserID: testUserID, Text: "promoted", Timestamp: time.Now()}, nil
}

func (f *fakeQuoteService) Current(ctx context.Context) (*entities.Quote, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return f.current, nil
}

type fakeQuoteStore struct {
	quotes     []entities.Quote
	err        error
	lastUserID string
	lastLimit  int
	lastOffset int
}

func (f *fakeQuoteStore) ListForUser(userID string, limit, offset int) ([]entities.Quote, int64, error) {
	f.lastUserID = userID
	f.lastLimit = limit
	f.lastOffset = offset
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.quotes, int64(len(f.quotes)), nil
}

func quotesRouter(service QuoteService, store QuoteStore, userID string) *gin.Engine {
	router := gin.New()
	router.Use(withUser(userID))

	qc := NewQuotesController(service, store)
	router.GET("/api/quotes", qc.List)
	router.POST("/api/quotes", qc.Add)
	router.DELETE("/api/quotes/:id", qc.Delete)
	router.POST("/api/quotes/:id/promote", qc.Promote)
	router.GET("/api/quotes/current", qc.Current)
	return router
}

func TestQuotesList(t *testing.T) {
	t.Run("returns the journal with pagination metadata", func(t *testing.T) {
		store := &fakeQuoteStore{quotes: []entities.Quote{
			{ID: testQuoteID, UserID: testUserID, Text: "newest"},
			{ID: "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d", UserID: testUserID, Text: "older"},
		}}
		router := quotesRouter(&fakeQuoteService{}, store, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/quotes?limit=10&offset=5", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testUserID, store.lastUserID)
		assert.Equal(t, 10, store.lastLimit)
		assert.Equal(t, 5, store.lastOffset)

		var response struct {
			Quotes []entities.Quote `json:"quotes"`
			Total  int64            `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Quotes, 2)
		assert.Equal(t, int64(2), response.Total)
	})

	t.Run("clamps out-of-range pagination", func(t *testing.T) {
		store := &fakeQuoteStore{}
		router := quotesRouter(&fakeQuoteService{}, store, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/quotes?limit=100000&offset=-3", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 50, store.lastLimit)
		assert.Equal(t, 0, store.lastOffset)
	})

	t.Run("rejects anonymous requests", func(t *testing.T) {
		router := quotesRouter(&fakeQuoteService{}, &fakeQuoteStore{}, "")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/quotes", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestQuotesAdd(t *testing.T) {
	t.Run("creates a quote", func(t *testing.T) {
		service := &fakeQuoteService{}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		body := strings.NewReader(`{"text": "  The obstacle is the way.  "}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/quotes", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, service.added, 1)
		assert.Equal(t, "The obstacle is the way.", service.added[0])

		var quote entities.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.Equal(t, "The obstacle is the way.", quote.Text)
	})

	t.Run("rejects missing text", func(t *testing.T) {
		service := &fakeQuoteService{}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		for _, body := range []string{`{}`, `{"text": "   "}`, `not json`} {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/api/quotes", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		}
		assert.Empty(t, service.added)
	})

	t.Run("maps signed-out to 401", func(t *testing.T) {
		service := &fakeQuoteService{addErr: sync.ErrNotSignedIn}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/quotes", strings.NewReader(`{"text": "hello"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestQuotesDelete(t *testing.T) {
	t.Run("deletes a quote", func(t *testing.T) {
		service := &fakeQuoteService{}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/quotes/"+testQuoteID, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{testQuoteID}, service.deleted)
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		service := &fakeQuoteService{}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/quotes/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, service.deleted)
	})

	t.Run("maps missing records to 404", func(t *testing.T) {
		service := &fakeQuoteService{deleteErr: gorm.ErrRecordNotFound}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/quotes/"+testQuoteID, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("hides internal errors", func(t *testing.T) {
		service := &fakeQuoteService{deleteErr: fmt.Errorf("disk on fire")}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/quotes/"+testQuoteID, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk on fire")
	})
}

func TestQuotesPromote(t *testing.T) {
	t.Run("promotes a quote", func(t *testing.T) {
		service := &fakeQuoteService{}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/quotes/"+testQuoteID+"/promote", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{testQuoteID}, service.promoted)

		var quote entities.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.Equal(t, testQuoteID, quote.ID)
	})

	t.Run("maps missing records to 404", func(t *testing.T) {
		service := &fakeQuoteService{promoteErr: gorm.ErrRecordNotFound}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/quotes/"+testQuoteID+"/promote", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQuotesCurrent(t *testing.T) {
	t.Run("returns the max-timestamp record", func(t *testing.T) {
		service := &fakeQuoteService{current: &entities.Quote{
			ID:   testQuoteID,
			Text: "current one",
		}}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/quotes/current", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var quote entities.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.Equal(t, "current one", quote.Text)
	})

	t.Run("answers 404 on an empty journal", func(t *testing.T) {
		service := &fakeQuoteService{currentErr: gorm.ErrRecordNotFound}
		router := quotesRouter(service, &fakeQuoteStore{}, testUserID)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/quotes/current", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
