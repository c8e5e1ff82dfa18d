package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quotevault/internal/videos"
)

type VideosController struct {
	client *videos.Client
}

func NewVideosController(client *videos.Client) *VideosController {
	return &VideosController{client: client}
}

// Feed returns the video feed, cached for the process-wide window
// unless ?refresh=true forces a fetch.
// GET /api/videos
func (vc *VideosController) Feed(c *gin.Context) {
	forceRefresh := c.Query("refresh") == "true"
	c.JSON(http.StatusOK, vc.client.Fetch(c.Request.Context(), forceRefresh))
}
