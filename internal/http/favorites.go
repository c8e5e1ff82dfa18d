package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"quotevault/internal/entities"
	"quotevault/internal/sync"
)

// FavoriteService covers saving and removing favorited quotes.
type FavoriteService interface {
	AddFavorite(ctx context.Context, text, author string, categories []string) (*entities.Quote, error)
	FindExisting(ctx context.Context, text, author string) (*entities.Quote, error)
	RemoveFavorite(ctx context.Context, id string) error
}

type FavoritesController struct {
	service FavoriteService
}

func NewFavoritesController(service FavoriteService) *FavoritesController {
	return &FavoritesController{service: service}
}

type addFavoriteRequest struct {
	Text       string   `json:"text" binding:"required"`
	Author     string   `json:"author"`
	Categories []string `json:"categories"`
}

// Add saves a discovered quote as a favorite. Saving the same text and
// author twice returns the existing record instead of duplicating it.
// POST /api/favorites
func (fc *FavoritesController) Add(c *gin.Context) {
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondBadRequest(c, "text is required")
		return
	}
	author := strings.TrimSpace(req.Author)

	existing, err := fc.service.FindExisting(c.Request.Context(), text, author)
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondInternalError(c, err, "find favorite")
		return
	}

	quote, err := fc.service.AddFavorite(c.Request.Context(), text, author, req.Categories)
	if err != nil {
		if errors.Is(err, sync.ErrNotSignedIn) {
			respondError(c, http.StatusUnauthorized, "sign-in required")
			return
		}
		respondInternalError(c, err, "add favorite")
		return
	}

	respondCreated(c, quote)
}

// Remove deletes a favorite record.
// DELETE /api/favorites/:id
func (fc *FavoritesController) Remove(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := fc.service.RemoveFavorite(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, sync.ErrNotSignedIn):
			respondError(c, http.StatusUnauthorized, "sign-in required")
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "favorite")
		default:
			respondInternalError(c, err, "remove favorite")
		}
		return
	}

	respondSuccess(c, "favorite removed")
}
