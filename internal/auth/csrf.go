package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the header name for CSRF tokens in AJAX requests.
const CSRFTokenHeader = "X-CSRF-Token"

// CSRFMiddleware creates a Gin middleware for CSRF protection on
// cookie-authenticated requests. It skips CSRF checks for:
// - requests carrying the active session's Bearer token
// - safe HTTP methods (GET, HEAD, OPTIONS, TRACE)
//
// The manager parameter validates bearer tokens before skipping CSRF.
// If nil, any Bearer header skips the check.
func CSRFMiddleware(secret []byte, secure bool, manager *Manager) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		// Bearer clients carry no ambient cookie credentials, so CSRF
		// does not apply to them
		if isAPIWithValidBearer(c, manager) {
			c.Next()
			return
		}

		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Expose the token so the session endpoint can hand it to
			// the local UI
			c.Set("csrf_token", csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// csrfErrorHandler handles CSRF validation failures. The daemon serves
// JSON only, so there is no HTML error page.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
}

// isAPIWithValidBearer checks if the request carries the active backend
// session's access token. If manager is nil, header presence suffices.
func isAPIWithValidBearer(c *gin.Context, manager *Manager) bool {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return false
	}

	if manager == nil {
		return true
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return false
	}

	session := manager.Session()
	if session == nil || session.AccessToken == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(session.AccessToken)) == 1
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get("csrf_token"); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
