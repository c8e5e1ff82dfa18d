package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quotevault/internal/config"
)

// Context keys for request identity
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyEmail    = "auth_email"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the request was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Middleware authenticates HTTP requests against the active backend
// session. There is no local user table; the daemon serves exactly one
// account, the one currently signed in through the Manager.
type Middleware struct {
	manager        *Manager
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(manager *Manager, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	publicPaths := map[string]bool{
		"/health": true,
		"/ping":   true,
	}

	return &Middleware{
		manager:        manager,
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths:    publicPaths,
	}
}

// Manager returns the auth manager backing this middleware.
func (m *Middleware) Manager() *Manager {
	return m.manager
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return m.noAuthHandler()
	}

	return m.authHandler()
}

// noAuthHandler trusts every request when auth is disabled. The identity
// is still the signed-in account so handlers scope data correctly.
func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.setIdentity(c, AuthTypeNone)
		c.Next()
	}
}

// authHandler handles authentication when auth is enabled.
func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		// Bearer token first (API clients)
		if m.tryBearerAuth(c) {
			m.setIdentity(c, AuthTypeBearer)
			c.Next()
			return
		}

		// Session cookie (local UI)
		if m.trySessionAuth(c) {
			m.setIdentity(c, AuthTypeSession)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
	}
}

// tryBearerAuth accepts the active session's access token as a bearer
// credential.
func (m *Middleware) tryBearerAuth(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return false
	}

	session := m.manager.Session()
	if session == nil || session.AccessToken == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(session.AccessToken)) == 1
}

// trySessionAuth accepts a cookie session that was issued for the account
// currently signed in. Cookies issued for a previous account die with it.
func (m *Middleware) trySessionAuth(c *gin.Context) bool {
	if m.sessionManager == nil {
		return false
	}

	accountID := m.sessionManager.GetAccountID(c.Request)
	if accountID == "" {
		return false
	}

	return accountID == m.manager.UserID()
}

// setIdentity stores the active account in the Gin context.
func (m *Middleware) setIdentity(c *gin.Context, authType AuthType) {
	if session := m.manager.Session(); session != nil {
		c.Set(ContextKeyUserID, session.User.ID)
		c.Set(ContextKeyEmail, session.User.Email)
	}
	c.Set(ContextKeyAuthType, authType)
}

// isPublicPath checks if a path is reachable without authentication.
// Auth endpoints must stay open so sign-in is possible while signed out.
func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}

	return strings.HasPrefix(path, "/api/auth/")
}

// RequireSignIn returns a middleware that rejects requests while no
// backend session exists, regardless of auth mode. Use it on routes that
// cannot work anonymously, like sync.
func (m *Middleware) RequireSignIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.manager.Session() == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "sign-in required",
			})
			return
		}
		c.Next()
	}
}

// Helper functions to extract identity from the Gin context

// GetUserID retrieves the active account UUID from the context.
// Returns "" when signed out.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

// GetEmail retrieves the active account email from the context.
func GetEmail(c *gin.Context) string {
	if e, exists := c.Get(ContextKeyEmail); exists {
		if email, ok := e.(string); ok {
			return email
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
