package http

import (
	"quotevault/internal/auth"
	"quotevault/internal/database"
	"quotevault/internal/database/quotes"
	"quotevault/internal/discover"
	"quotevault/internal/entitlements"
	"quotevault/internal/settingsstore"
	"quotevault/internal/sync"
	"quotevault/internal/videos"
)

// RouterConfig contains all dependencies and configuration needed to
// create the HTTP router. Nil fields disable their routes, which keeps
// handler tests from wiring the whole daemon.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Quotes   *quotes.Repository
	Service  *sync.Service

	// Authentication
	AuthController *auth.Controller
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// Premium content
	Discover     *discover.Client
	Videos       *videos.Client
	Entitlements *entitlements.Client
	Entitlement  string

	// Sync surface
	SettingsStore *settingsstore.SettingsStore
	SyncScheduler SyncTrigger

	// Widget surface
	Widget          SnapshotSource
	WidgetScheduler RenderScheduler

	// Application info
	Version string
}
