package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quotevault/internal/entities"
)

type favoriteCall struct {
	text       string
	author     string
	categories []string
}

type fakeFavoriteService struct {
	existing *entities.Quote
	findErr  error
	added    []favoriteCall
	addErr   error
	removed  []string
}

func (f *fakeFavoriteService) AddFavorite(ctx context.Context, text, author string, categories []string) (*entities.Quote, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, favoriteCall{text: text, author: author, categories: categories})
	return &entities.Quote{
		ID:         testQuoteID,
		UserID:     testUserID,
		Text:       text,
		Author:     author,
		Categories: categories,
		IsFavorite: true,
	}, nil
}

func (f *fakeFavoriteService) FindExisting(ctx context.Context, text, author string) (*entities.Quote, error) {
	if f.existing != nil {
		return f.existing, nil
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeFavoriteService) RemoveFavorite(ctx context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func favoritesRouter(service FavoriteService) *gin.Engine {
	router := gin.New()
	router.Use(withUser(testUserID))

	fc := NewFavoritesController(service)
	router.POST("/api/favorites", fc.Add)
	router.DELETE("/api/favorites/:id", fc.Remove)
	return router
}

func TestFavoritesAdd(t *testing.T) {
	t.Run("creates a favorite with trimmed fields", func(t *testing.T) {
		service := &fakeFavoriteService{}
		router := favoritesRouter(service)

		body := strings.NewReader(`{"text": " Stay hungry. ", "author": " Stewart Brand ", "categories": ["wisdom", "work"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/favorites", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, service.added, 1)
		assert.Equal(t, "Stay hungry.", service.added[0].text)
		assert.Equal(t, "Stewart Brand", service.added[0].author)
		assert.Equal(t, []string{"wisdom", "work"}, service.added[0].categories)

		var quote entities.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.True(t, quote.IsFavorite)
	})

	t.Run("returns the existing record instead of duplicating", func(t *testing.T) {
		existing := &entities.Quote{
			ID:         testQuoteID,
			UserID:     testUserID,
			Text:       "Stay hungry.",
			Author:     "Stewart Brand",
			IsFavorite: true,
		}
		service := &fakeFavoriteService{existing: existing}
		router := favoritesRouter(service)

		body := strings.NewReader(`{"text": "Stay hungry.", "author": "Stewart Brand"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/favorites", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, service.added)

		var quote entities.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.Equal(t, testQuoteID, quote.ID)
	})

	t.Run("rejects missing text", func(t *testing.T) {
		service := &fakeFavoriteService{}
		router := favoritesRouter(service)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/favorites", strings.NewReader(`{"author": "nobody"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, service.added)
	})
}

func TestFavoritesRemove(t *testing.T) {
	service := &fakeFavoriteService{}
	router := favoritesRouter(service)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/favorites/"+testQuoteID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{testQuoteID}, service.removed)
}
