package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"quotevault/internal/auth"
	"quotevault/internal/database/quotes"
	"quotevault/internal/http"
	"quotevault/internal/outbox"
	"quotevault/internal/scheduler"
	"quotevault/internal/settingsstore"
	"quotevault/internal/supabase"
	"quotevault/internal/sync"
	"quotevault/internal/widget"
)

// =============================================================================
// HTTP Layer
// =============================================================================

// Journal endpoints
var _ http.QuoteService = (*sync.Service)(nil)
var _ http.FavoriteService = (*sync.Service)(nil)
var _ http.QuoteStore = (*quotes.Repository)(nil)

// Sync endpoints
var _ http.SyncTrigger = (*scheduler.SyncScheduler)(nil)

// Widget endpoints
var _ http.SnapshotSource = (*widget.Renderer)(nil)
var _ http.RenderScheduler = (*scheduler.WidgetScheduler)(nil)

// =============================================================================
// Sync Service
// =============================================================================

var _ sync.RemoteClient = (*supabase.Client)(nil)
var _ sync.SessionSource = (*auth.Manager)(nil)
var _ sync.Enqueuer = (*outbox.Client)(nil)
var _ sync.Refresher = (*widget.Renderer)(nil)

// =============================================================================
// Outbox Processors
// =============================================================================

var _ outbox.RemoteStore = (*supabase.Client)(nil)
var _ outbox.SessionSource = (*auth.Manager)(nil)
var _ outbox.StatusSink = (*settingsstore.SettingsStore)(nil)

// =============================================================================
// Widget Renderer
// =============================================================================

var _ widget.QuoteSource = (*quotes.Repository)(nil)
var _ widget.SessionChecker = (widget.SessionCheckerFunc)(nil)
var _ widget.StatusSink = (*settingsstore.SettingsStore)(nil)

// =============================================================================
// Schedulers
// =============================================================================

var _ scheduler.SyncRunner = (*sync.Service)(nil)
var _ scheduler.SessionChecker = (*auth.Manager)(nil)
var _ scheduler.Refresher = (*widget.Renderer)(nil)
