package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"quotevault/internal/auth"
	"quotevault/internal/entities"
	"quotevault/internal/sync"
)

// QuoteService covers the journal operations handlers trigger. The sync
// service applies them locally first and queues the remote mirror.
type QuoteService interface {
	Add(ctx context.Context, text string) (*entities.Quote, error)
	Delete(ctx context.Context, id string) error
	Promote(ctx context.Context, id string) (*entities.Quote, error)
	Current(ctx context.Context) (*entities.Quote, error)
}

// QuoteStore covers the read side of the journal.
type QuoteStore interface {
	ListForUser(userID string, limit, offset int) ([]entities.Quote, int64, error)
}

type QuotesController struct {
	service QuoteService
	store   QuoteStore
}

func NewQuotesController(service QuoteService, store QuoteStore) *QuotesController {
	return &QuotesController{service: service, store: store}
}

// List returns the journal, newest first.
// GET /api/quotes
func (qc *QuotesController) List(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "sign-in required")
		return
	}

	limit, offset := parseLimitOffset(c)
	quotes, total, err := qc.store.ListForUser(userID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list quotes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quotes": quotes,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type addQuoteRequest struct {
	Text string `json:"text" binding:"required"`
}

// Add appends a quote to the journal. The record is returned before the
// remote mirror catches up.
// POST /api/quotes
func (qc *QuotesController) Add(c *gin.Context) {
	var req addQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondBadRequest(c, "text is required")
		return
	}

	quote, err := qc.service.Add(c.Request.Context(), text)
	if err != nil {
		if errors.Is(err, sync.ErrNotSignedIn) {
			respondError(c, http.StatusUnauthorized, "sign-in required")
			return
		}
		respondInternalError(c, err, "add quote")
		return
	}

	respondCreated(c, quote)
}

// Delete removes a quote locally and queues the remote delete.
// DELETE /api/quotes/:id
func (qc *QuotesController) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := qc.service.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, sync.ErrNotSignedIn):
			respondError(c, http.StatusUnauthorized, "sign-in required")
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "quote")
		default:
			respondInternalError(c, err, "delete quote")
		}
		return
	}

	respondSuccess(c, "quote deleted")
}

// Promote bumps a quote's timestamp so the widget shows it.
// POST /api/quotes/:id/promote
func (qc *QuotesController) Promote(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	quote, err := qc.service.Promote(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrNotSignedIn):
			respondError(c, http.StatusUnauthorized, "sign-in required")
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "quote")
		default:
			respondInternalError(c, err, "promote quote")
		}
		return
	}

	c.JSON(http.StatusOK, quote)
}

// Current returns the record the widget shows, the one with the maximum
// timestamp.
// GET /api/quotes/current
func (qc *QuotesController) Current(c *gin.Context) {
	quote, err := qc.service.Current(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrNotSignedIn):
			respondError(c, http.StatusUnauthorized, "sign-in required")
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "quote")
		default:
			respondInternalError(c, err, "current quote")
		}
		return
	}

	c.JSON(http.StatusOK, quote)
}
