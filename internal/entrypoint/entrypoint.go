// Package entrypoint boots the daemon: store, session, outbox, sync
// service, schedulers, and the HTTP API, with graceful teardown in the
// reverse order.
package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"quotevault/internal/auth"
	"quotevault/internal/config"
	"quotevault/internal/database"
	"quotevault/internal/database/quotes"
	"quotevault/internal/discover"
	"quotevault/internal/entitlements"
	http_controllers "quotevault/internal/http"
	"quotevault/internal/lockfile"
	"quotevault/internal/outbox"
	"quotevault/internal/scheduler"
	"quotevault/internal/sessionstore"
	"quotevault/internal/settingsstore"
	"quotevault/internal/supabase"
	"quotevault/internal/sync"
	"quotevault/internal/videos"
	"quotevault/internal/widget"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	// The widget process and the snapshot readers expect this directory.
	if err := os.MkdirAll(cfg.Widget.Dir, 0o755); err != nil {
		log.Fatalf("Widget directory %s is not writable: %v", cfg.Widget.Dir, err)
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 1 second.
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscanll.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall. SIGKILL but can"t be catch, so don't need add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the outbox queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting QuoteVault v%s", version)

	// Single writer: a second daemon on the same store refuses to start.
	lock, err := lockfile.AcquireWrite(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to lock store: %v", err)
	}
	defer lock.Unlock()

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	repo := quotes.NewRepository(db.DB)
	settings := settingsstore.New(db)

	sessionStore, err := sessionstore.New(db.DB, sessionstore.Config{})
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}

	if cfg.Supabase.URL == "" {
		log.Printf("WARNING: Supabase URL is not set. Sign-in and remote sync are disabled. Set 'SUPABASE_URL' and 'SUPABASE_ANON_KEY' to enable.")
	}
	supabaseClient := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)

	// Restore the persisted session and keep its token fresh.
	manager := auth.NewManager(supabaseClient, sessionStore, cfg.TokenRefresh)
	if err := manager.Restore(context.Background()); err != nil {
		log.Printf("WARNING: Failed to restore persisted session: %v", err)
	}
	go manager.StartRefreshLoop(context.Background())

	// Widget renderer; the daemon side records render times in settings.
	renderer := widget.NewRenderer(repo, widget.SessionCheckerFunc(func() (bool, error) {
		return manager.UserID() != "", nil
	}), settings, cfg.Widget.Dir)

	// Outbox queue for the remote mirror
	var outboxClient *outbox.Client
	var outboxCancel context.CancelFunc
	var enqueuer sync.Enqueuer
	if cfg.Outbox.Enabled {
		outboxClient, err = outbox.NewClient(cfg.Database.Path, outbox.Config{
			Workers:           cfg.Outbox.Workers,
			MaxAttempts:       cfg.Outbox.MaxRetries,
			Backoff:           cfg.Outbox.RetryDelay,
			Timeout:           cfg.Outbox.TaskTimeout,
			ReleaseAfter:      cfg.Outbox.ReleaseAfter,
			CleanupInterval:   cfg.Outbox.CleanupInterval,
			RetentionDuration: cfg.Outbox.RetentionDuration,
		})
		if err != nil {
			log.Fatalf("Failed to initialize outbox queue: %v", err)
		}
		defer func() {
			if err := outboxClient.Close(); err != nil {
				log.Printf("Error closing outbox: %v", err)
			}
		}()

		outboxClient.RegisterQuoteQueues(outbox.Deps{
			Repo:     repo,
			Remote:   supabaseClient,
			Sessions: manager,
			Status:   settings,
		})

		var outboxCtx context.Context
		outboxCtx, outboxCancel = context.WithCancel(context.Background())
		outboxClient.Start(outboxCtx)
		enqueuer = outboxClient
	} else {
		log.Printf("WARNING: Outbox is disabled. Local changes will not be mirrored to the backend.")
	}

	service := sync.NewService(repo, supabaseClient, manager, enqueuer, settings, renderer)

	// Requeue pushes that were never confirmed, then the launch pass. The
	// pass runs in the background so the API is up immediately.
	if outboxClient != nil {
		service.RequeuePending(context.Background())
	}
	go func() {
		if err := service.SyncOnLaunch(context.Background()); err != nil {
			log.Printf("Sync: launch pass failed: %v", err)
		}
	}()
	renderer.RequestRefresh()

	// Premium content clients
	var discoverClient *discover.Client
	if cfg.Discover.BaseURL != "" {
		discoverClient = discover.NewClient(cfg.Discover.BaseURL, cfg.Discover.APIKey, cfg.Discover.PageSize)
	} else {
		log.Printf("WARNING: Discovery API is not configured. Set 'DISCOVER_BASE_URL' to enable the discover endpoints.")
	}
	var videosClient *videos.Client
	if cfg.Videos.Endpoint != "" {
		videosClient = videos.NewClient(cfg.Videos.Endpoint, cfg.Videos.CacheTTL)
	} else {
		log.Printf("WARNING: Videos endpoint is not configured. Set 'VIDEOS_ENDPOINT' to enable the video feed.")
	}
	entitlementsClient := entitlements.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIKey, cfg.Billing.CacheTTL)

	// Auth state reactions: a fresh sign-in re-checks entitlements, pushes
	// whatever is queued locally and pulls the remote journal; sign-out
	// wipes the entitlement cache and re-renders the signed-out card.
	events := manager.Subscribe()
	go func() {
		for change := range events {
			switch change.Event {
			case auth.EventSignedIn:
				entitlementsClient.Reset()
				service.RequeuePending(context.Background())
				go func() {
					if err := service.SyncOnLaunch(context.Background()); err != nil {
						log.Printf("Sync: post-sign-in pass failed: %v", err)
					}
				}()
			case auth.EventSignedOut:
				entitlementsClient.Reset()
				renderer.RequestRefresh()
			}
		}
	}()

	// Schedulers: periodic reconciliation and widget re-render
	syncScheduler := scheduler.NewSyncScheduler(settings, service, manager)
	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Printf("WARNING: Sync scheduler not started: %v", err)
	}
	widgetScheduler := scheduler.NewWidgetScheduler(settings, renderer)
	if err := widgetScheduler.Start(context.Background()); err != nil {
		log.Printf("WARNING: Widget scheduler not started: %v", err)
	}

	// Cookie sessions and CSRF for the local UI surface
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(manager, sessionManager, cfg.Auth)
	authController := auth.NewController(manager, sessionManager, cfg.Auth)

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local (API requires the active session)")
	} else {
		log.Printf("Authentication mode: none (local trusted use)")
	}

	// Generate or use configured CSRF secret
	var csrfSecret []byte
	if cfg.Auth.SessionSecret != "" {
		csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			csrfSecret = []byte(cfg.Auth.SessionSecret)
		}
	} else {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret, _ = hex.DecodeString(secret)
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:        db,
		Quotes:          repo,
		Service:         service,
		AuthController:  authController,
		AuthMiddleware:  authMiddleware,
		SessionManager:  sessionManager,
		CSRFSecret:      csrfSecret,
		SecureCookies:   cfg.Auth.SecureCookies,
		Discover:        discoverClient,
		Videos:          videosClient,
		Entitlements:    entitlementsClient,
		Entitlement:     cfg.Billing.Entitlement,
		SettingsStore:   settings,
		SyncScheduler:   syncScheduler,
		Widget:          renderer,
		WidgetScheduler: widgetScheduler,
		Version:         version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		syncScheduler.Stop()
		widgetScheduler.Stop()
		if outboxClient != nil {
			if !outboxClient.Stop(ctx) {
				log.Printf("Outbox: some tasks were still running at shutdown")
			}
			outboxCancel()
		}
		authController.Stop()
		manager.Stop()
	}

	Serve(router, cfg, onShutdown)
}
