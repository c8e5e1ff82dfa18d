package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quotevault/internal/settingsstore"
	"quotevault/internal/widget"
)

// SnapshotSource supplies the rendered widget snapshot.
type SnapshotSource interface {
	Snapshot() (*widget.Snapshot, error)
}

// RenderScheduler is the scheduler surface the widget schedule endpoints use.
type RenderScheduler interface {
	GetNextRunTime() *time.Time
	Reschedule() error
}

type WidgetController struct {
	source    SnapshotSource
	settings  *settingsstore.SettingsStore
	scheduler RenderScheduler
}

func NewWidgetController(source SnapshotSource, settings *settingsstore.SettingsStore, scheduler RenderScheduler) *WidgetController {
	return &WidgetController{source: source, settings: settings, scheduler: scheduler}
}

// Snapshot returns the current widget snapshot, rendering one when no
// snapshot has been written yet.
// GET /api/widget/snapshot
func (wc *WidgetController) Snapshot(c *gin.Context) {
	snapshot, err := wc.source.Snapshot()
	if err != nil {
		respondInternalError(c, err, "load widget snapshot")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// UpdateWidgetScheduleRequest carries a new render schedule.
type UpdateWidgetScheduleRequest struct {
	Schedule string `json:"schedule"`
}

// Schedule reports the effective render schedule and where it comes from.
// GET /api/widget/schedule
func (wc *WidgetController) Schedule(c *gin.Context) {
	wc.respondSchedule(c)
}

// UpdateSchedule saves the render schedule and reschedules the background
// job.
// PUT /api/widget/schedule
func (wc *WidgetController) UpdateSchedule(c *gin.Context) {
	var req UpdateWidgetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Schedule == "" {
		respondBadRequest(c, "schedule is required")
		return
	}
	if err := settingsstore.ValidateCronSchedule(req.Schedule); err != nil {
		respondBadRequest(c, "invalid cron schedule: "+err.Error())
		return
	}

	if err := wc.settings.SetWidgetSchedule(req.Schedule); err != nil {
		respondInternalError(c, err, "save widget schedule")
		return
	}
	if err := wc.reschedule(); err != nil {
		respondInternalError(c, err, "reschedule widget renders")
		return
	}

	wc.respondSchedule(c)
}

// ResetSchedule drops the database override so the environment value or
// default applies again.
// DELETE /api/widget/schedule
func (wc *WidgetController) ResetSchedule(c *gin.Context) {
	if err := wc.settings.ClearWidgetSchedule(); err != nil {
		respondInternalError(c, err, "clear widget schedule")
		return
	}
	if err := wc.reschedule(); err != nil {
		respondInternalError(c, err, "reschedule widget renders")
		return
	}
	wc.respondSchedule(c)
}

func (wc *WidgetController) reschedule() error {
	if wc.scheduler == nil {
		return nil
	}
	return wc.scheduler.Reschedule()
}

func (wc *WidgetController) respondSchedule(c *gin.Context) {
	schedule := wc.settings.GetWidgetSchedule()
	payload := gin.H{
		"schedule":        schedule,
		"schedule_source": wc.settings.GetWidgetScheduleSource(),
		"description":     settingsstore.GetCronDescription(schedule),
	}
	if last := wc.settings.GetWidgetLastRenderedAt(); last != nil {
		payload["last_rendered_at"] = last
	}
	if wc.scheduler != nil {
		if next := wc.scheduler.GetNextRunTime(); next != nil {
			payload["next_run"] = next
		}
	}
	c.JSON(http.StatusOK, payload)
}
