package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quotevault/internal/settingsstore"
)

// SyncTrigger is the scheduler surface the sync endpoints use.
type SyncTrigger interface {
	RunNow()
	IsSyncing() bool
	GetNextRunTime() *time.Time
	Reschedule() error
}

type SyncController struct {
	settings  *settingsstore.SettingsStore
	scheduler SyncTrigger
}

func NewSyncController(settings *settingsstore.SettingsStore, scheduler SyncTrigger) *SyncController {
	return &SyncController{settings: settings, scheduler: scheduler}
}

// Status reports the outcome of the last reconciliation pass plus the
// mirror queue's last error, if any.
// GET /api/sync/status
func (sc *SyncController) Status(c *gin.Context) {
	status := sc.settings.GetSyncStatus()

	payload := gin.H{
		"enabled":       sc.settings.GetSyncEnabled(),
		"schedule":      sc.settings.GetSyncSchedule(),
		"status":        status.Status,
		"message":       status.Message,
		"quotes_pulled": status.QuotesPulled,
		"last_sync_at":  status.LastSyncAt,
		"is_syncing":    false,
	}

	if sc.scheduler != nil {
		payload["is_syncing"] = sc.scheduler.IsSyncing()
		if next := sc.scheduler.GetNextRunTime(); next != nil {
			payload["next_run"] = next
		}
	}

	if message, at := sc.settings.GetOutboxError(); message != "" {
		payload["outbox_error"] = gin.H{"message": message, "at": at}
	}

	c.JSON(http.StatusOK, payload)
}

// Run triggers an immediate reconciliation pass.
// POST /api/sync/run
func (sc *SyncController) Run(c *gin.Context) {
	if sc.scheduler == nil {
		respondError(c, http.StatusServiceUnavailable, "sync is not available")
		return
	}
	if sc.scheduler.IsSyncing() {
		respondError(c, http.StatusConflict, "a sync is already running")
		return
	}

	sc.scheduler.RunNow()
	respondAccepted(c, "sync started")
}

// UpdateSyncSettingsRequest carries a settings update. Nil fields keep
// their current value.
type UpdateSyncSettingsRequest struct {
	Enabled  *bool   `json:"enabled"`
	Schedule *string `json:"schedule"`
}

// Settings reports the effective sync configuration and where each value
// comes from.
// GET /api/sync/settings
func (sc *SyncController) Settings(c *gin.Context) {
	sc.respondConfig(c)
}

// UpdateSettings saves sync settings and reschedules the background job.
// PUT /api/sync/settings
func (sc *SyncController) UpdateSettings(c *gin.Context) {
	var req UpdateSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Enabled == nil && req.Schedule == nil {
		respondBadRequest(c, "nothing to update")
		return
	}

	if req.Schedule != nil {
		if err := settingsstore.ValidateCronSchedule(*req.Schedule); err != nil {
			respondBadRequest(c, "invalid cron schedule: "+err.Error())
			return
		}
		if err := sc.settings.SetSyncSchedule(*req.Schedule); err != nil {
			respondInternalError(c, err, "save sync schedule")
			return
		}
	}
	if req.Enabled != nil {
		if err := sc.settings.SetSyncEnabled(*req.Enabled); err != nil {
			respondInternalError(c, err, "save sync enabled flag")
			return
		}
	}

	if err := sc.reschedule(); err != nil {
		respondInternalError(c, err, "reschedule sync")
		return
	}

	sc.respondConfig(c)
}

// ResetSettings drops the database overrides so environment values and
// defaults apply again.
// DELETE /api/sync/settings
func (sc *SyncController) ResetSettings(c *gin.Context) {
	if err := sc.settings.ClearSyncSettings(); err != nil {
		respondInternalError(c, err, "clear sync settings")
		return
	}
	if err := sc.reschedule(); err != nil {
		respondInternalError(c, err, "reschedule sync")
		return
	}
	sc.respondConfig(c)
}

func (sc *SyncController) reschedule() error {
	if sc.scheduler == nil {
		return nil
	}
	return sc.scheduler.Reschedule()
}

func (sc *SyncController) respondConfig(c *gin.Context) {
	info := sc.settings.GetSyncConfigInfo()
	payload := gin.H{
		"config":      info,
		"description": settingsstore.GetCronDescription(info.Schedule),
	}
	if sc.scheduler != nil {
		if next := sc.scheduler.GetNextRunTime(); next != nil {
			payload["next_run"] = next
		}
	}
	c.JSON(http.StatusOK, payload)
}
