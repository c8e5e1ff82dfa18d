package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// TestRateLimiter tests the rate limiting functionality.
func TestRateLimiter_AllowsInitialAttempts(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Hour, // Long interval to prevent cleanup during test
	})
	defer rl.Stop()

	// First 3 attempts should be allowed
	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("192.168.1.1", "me@example.com")
		if !allowed {
			t.Errorf("Attempt %d should be allowed", i+1)
		}
		rl.RecordFailure("192.168.1.1", "me@example.com")
	}

	// 4th attempt should be blocked
	allowed, retryAfter := rl.Allow("192.168.1.1", "me@example.com")
	if allowed {
		t.Error("4th attempt should be blocked")
	}
	if retryAfter == 0 {
		t.Error("retryAfter should be non-zero when blocked")
	}
}

func TestRateLimiter_SuccessResetsCounter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	// Record 2 failures
	rl.RecordFailure("192.168.1.1", "me@example.com")
	rl.RecordFailure("192.168.1.1", "me@example.com")

	// Successful login
	rl.RecordSuccess("192.168.1.1", "me@example.com")

	// Should be allowed again (counter reset)
	allowed, _ := rl.Allow("192.168.1.1", "me@example.com")
	if !allowed {
		t.Error("Should be allowed after successful login")
	}
}

func TestRateLimiter_DifferentAccountsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     2,
		WindowDuration:  time.Minute,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	// Max out the first account
	rl.RecordFailure("192.168.1.1", "one@example.com")
	rl.RecordFailure("192.168.1.1", "one@example.com")

	allowed, _ := rl.Allow("192.168.1.1", "one@example.com")
	if allowed {
		t.Error("one@example.com should be blocked")
	}

	// A different account from the same IP should still be allowed
	allowed, _ = rl.Allow("192.168.1.1", "two@example.com")
	if !allowed {
		t.Error("two@example.com should be allowed")
	}
}

func TestRateLimiter_WindowExpiryResets(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     2,
		WindowDuration:  10 * time.Millisecond,
		LockoutDuration: 10 * time.Millisecond,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	rl.RecordFailure("192.168.1.1", "me@example.com")
	rl.RecordFailure("192.168.1.1", "me@example.com")

	allowed, _ := rl.Allow("192.168.1.1", "me@example.com")
	if allowed {
		t.Fatal("Expected the account to be locked")
	}

	time.Sleep(25 * time.Millisecond)

	allowed, _ = rl.Allow("192.168.1.1", "me@example.com")
	if !allowed {
		t.Error("Expected the lockout to expire with the window")
	}
}

// TestSecurityHeaders tests that security headers are set correctly.
func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for header, expected := range headers {
		if got := rr.Header().Get(header); got != expected {
			t.Errorf("Header %s = %q, want %q", header, got, expected)
		}
	}

	// The daemon serves JSON only, so nothing external may load
	csp := rr.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Fatal("Content-Security-Policy header should be set")
	}
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP should deny all sources by default, got: %s", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("CSP should deny framing, got: %s", csp)
	}
}
