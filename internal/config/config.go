package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local sessions bound to the backend account
)

type (
	Config struct {
		HTTP
		Global
		Database
		Widget
		Supabase
		Sync
		Discover
		Videos
		Billing
		Outbox
		Auth
		TokenRefresh
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Widget struct {
		Dir      string // Directory for snapshot files
		Schedule string // Cron format: "*/15 * * * *" = every 15 minutes
	}
	Supabase struct {
		URL     string // Project base URL, e.g. "https://xyz.supabase.co"
		AnonKey string
	}
	Sync struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
	Discover struct {
		BaseURL  string
		APIKey   string
		PageSize int
	}
	Videos struct {
		Endpoint string
		CacheTTL time.Duration
	}
	Billing struct {
		BaseURL     string
		APIKey      string // Empty disables entitlement gating
		Entitlement string
		CacheTTL    time.Duration
	}
	Outbox struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local use without HTTPS
	}
	TokenRefresh struct {
		Enabled       bool
		CheckInterval time.Duration // How often to check for expiring sessions
		RefreshMargin time.Duration // Refresh sessions expiring within this duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8484)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("widget_dir", DefaultWidgetDir)
	v.SetDefault("widget_schedule", "*/15 * * * *") // Every 15 minutes
	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_anon_key", "")
	v.SetDefault("sync_enabled", true)
	v.SetDefault("sync_schedule", "0 */6 * * *") // Every 6 hours
	v.SetDefault("discover_base_url", "")
	v.SetDefault("discover_api_key", "")
	v.SetDefault("discover_page_size", 10)
	v.SetDefault("videos_endpoint", "")
	v.SetDefault("videos_cache_ttl", "5m")
	v.SetDefault("billing_base_url", "https://api.revenuecat.com/v1")
	v.SetDefault("billing_api_key", "")
	v.SetDefault("billing_entitlement", "pro")
	v.SetDefault("billing_cache_ttl", "5m")

	// Outbox queue defaults
	v.SetDefault("outbox_enabled", true)
	v.SetDefault("outbox_workers", 2)
	v.SetDefault("outbox_max_retries", 5)
	v.SetDefault("outbox_retry_delay", "30s")
	v.SetDefault("outbox_task_timeout", "1m")
	v.SetDefault("outbox_release_after", "15m")
	v.SetDefault("outbox_cleanup_interval", "1h")
	v.SetDefault("outbox_retention_duration", "24h")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_secure_cookies", false)   // Local daemon, plain HTTP

	// Session refresh defaults
	v.SetDefault("token_refresh_enabled", true)
	v.SetDefault("token_refresh_check_interval", "5m")
	v.SetDefault("token_refresh_margin", "10m")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Widget: Widget{
			Dir:      v.GetString("WIDGET_DIR"),
			Schedule: v.GetString("WIDGET_SCHEDULE"),
		},
		Supabase: Supabase{
			URL:     v.GetString("SUPABASE_URL"),
			AnonKey: v.GetString("SUPABASE_ANON_KEY"),
		},
		Sync: Sync{
			Enabled:  v.GetBool("SYNC_ENABLED"),
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Discover: Discover{
			BaseURL:  v.GetString("DISCOVER_BASE_URL"),
			APIKey:   v.GetString("DISCOVER_API_KEY"),
			PageSize: v.GetInt("DISCOVER_PAGE_SIZE"),
		},
		Videos: Videos{
			Endpoint: v.GetString("VIDEOS_ENDPOINT"),
			CacheTTL: v.GetDuration("VIDEOS_CACHE_TTL"),
		},
		Billing: Billing{
			BaseURL:     v.GetString("BILLING_BASE_URL"),
			APIKey:      v.GetString("BILLING_API_KEY"),
			Entitlement: v.GetString("BILLING_ENTITLEMENT"),
			CacheTTL:    v.GetDuration("BILLING_CACHE_TTL"),
		},
		Outbox: Outbox{
			Enabled:           v.GetBool("OUTBOX_ENABLED"),
			Workers:           v.GetInt("OUTBOX_WORKERS"),
			MaxRetries:        v.GetInt("OUTBOX_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("OUTBOX_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("OUTBOX_TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("OUTBOX_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("OUTBOX_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("OUTBOX_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		TokenRefresh: TokenRefresh{
			Enabled:       v.GetBool("TOKEN_REFRESH_ENABLED"),
			CheckInterval: v.GetDuration("TOKEN_REFRESH_CHECK_INTERVAL"),
			RefreshMargin: v.GetDuration("TOKEN_REFRESH_MARGIN"),
		},
	}
}
