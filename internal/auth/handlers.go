package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quotevault/internal/config"
	"quotevault/internal/supabase"
)

// Controller handles the authentication HTTP endpoints.
type Controller struct {
	manager        *Manager
	sessionManager *SessionManager
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewController creates the authentication controller.
func NewController(manager *Manager, sessionManager *SessionManager, cfg config.Auth) *Controller {
	return &Controller{
		manager:        manager,
		sessionManager: sessionManager,
		config:         cfg,
		rateLimiter:    NewRateLimiter(DefaultRateLimitConfig()),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *Controller) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/auth/signin", ac.SignIn)
	router.POST("/api/auth/signout", ac.SignOut)
	router.GET("/api/auth/session", ac.Session)
	router.GET("/api/auth/verify", ac.Verify)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *Controller) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignIn authenticates against the backend and establishes both the
// persisted backend session and a local cookie session.
func (ac *Controller) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	clientIP := c.ClientIP()

	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Email)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many sign-in attempts",
				"retry_after": retryAfter.String(),
			})
			return
		}
	}

	session, err := ac.manager.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, req.Email)
		}

		if errors.Is(err, supabase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "sign-in failed: " + err.Error()})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, req.Email)
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, &session.User); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id": session.User.ID,
		"email":      session.User.Email,
		"expires_at": session.ExpiryTime(),
	})
}

// SignOut revokes the backend session and destroys the cookie session.
// Signing out while already signed out succeeds.
func (ac *Controller) SignOut(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}

	if err := ac.manager.SignOut(c.Request.Context()); err != nil && !errors.Is(err, ErrNoSession) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Verify checks the persisted session against the backend. Session reports
// local state only; this answers whether the token is still honored.
func (ac *Controller) Verify(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	user, err := ac.manager.Verify(reqCtx)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSession):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "not signed in"})
		case errors.Is(err, supabase.ErrSessionMissing):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "session no longer valid"})
		default:
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"account_id": user.ID,
		"email":      user.Email,
	})
}

// Session reports the current authentication state. The CSRF token is
// included so the local UI can submit mutating requests.
func (ac *Controller) Session(c *gin.Context) {
	session := ac.manager.Session()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{
			"signed_in":  false,
			"auth_mode":  ac.config.Mode,
			"csrf_token": GetCSRFToken(c),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signed_in":  true,
		"account_id": session.User.ID,
		"email":      session.User.Email,
		"expires_at": session.ExpiryTime(),
		"auth_mode":  ac.config.Mode,
		"csrf_token": GetCSRFToken(c),
	})
}
