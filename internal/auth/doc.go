// Package auth owns the backend session and guards the local HTTP API.
//
// The daemon authenticates against the quote backend with an email and
// password; the resulting session (access and refresh tokens) is held by
// the Manager, persisted encrypted across restarts and refreshed in the
// background before it expires. Components that care about account
// changes subscribe to the Manager's state stream.
//
// It supports two HTTP authentication modes:
//   - "none": no authentication required (default), every request acts
//     as the signed-in account
//   - "local": requests must carry the active session's Bearer token or
//     a cookie session issued by the sign-in endpoint
//
// # Configuration
//
// Set AUTH_MODE environment variable to select the mode:
//
//	AUTH_MODE=none   # Default, no auth required
//	AUTH_MODE=local  # Requires sign-in
//
// For local mode, additional configuration:
//
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Cookie session duration
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//
// # Usage
//
// Initialize authentication in entrypoint:
//
//	manager := auth.NewManager(client, sessions, cfg.TokenRefresh)
//	middleware := auth.NewMiddleware(manager, sessionManager, cfg.Auth)
//	router.Use(middleware.Handler())
//
// Extract the account in handlers:
//
//	userID := auth.GetUserID(c)  // "" while signed out
package auth
