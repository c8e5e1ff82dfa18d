package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quotevault/internal/discover"
)

type DiscoverController struct {
	client *discover.Client
}

func NewDiscoverController(client *discover.Client) *DiscoverController {
	return &DiscoverController{client: client}
}

// Fetch pulls a page of quotes for a category. User-facing fetch
// failures ride inside the result's error_message; only an overlapping
// fetch is an HTTP error.
// GET /api/discover/:category
func (dc *DiscoverController) Fetch(c *gin.Context) {
	result, err := dc.client.Fetch(c.Request.Context(), c.Param("category"))
	if err != nil {
		if errors.Is(err, discover.ErrFetchInProgress) {
			respondError(c, http.StatusConflict, "a fetch is already running")
			return
		}
		respondInternalError(c, err, "discover quotes")
		return
	}

	c.JSON(http.StatusOK, result)
}

// State returns the outcome of the most recent fetch without issuing a
// new one.
// GET /api/discover
func (dc *DiscoverController) State(c *gin.Context) {
	c.JSON(http.StatusOK, dc.client.State())
}
