package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quotevault/internal/config"
	"quotevault/internal/crypto"
	"quotevault/internal/entities"
	"quotevault/internal/sessionstore"
	"quotevault/internal/supabase"
)

const (
	testUserID    = "9b2f0c44-7d11-4f6e-9f3a-0a8f4a2b9c01"
	testUserEmail = "me@example.com"
	testPassword  = "correct horse battery staple"
)

func testRefreshConfig() config.TokenRefresh {
	return config.TokenRefresh{
		Enabled:       true,
		CheckInterval: 25 * time.Millisecond,
		RefreshMargin: 5 * time.Minute,
	}
}

// fakeBackend stands in for GoTrue and the profiles table. Counters let
// tests assert which endpoints a manager operation touched.
type fakeBackend struct {
	mu           sync.Mutex
	signIns      int
	refreshes    int
	signOuts     int
	userGets     int
	profilePosts int

	refreshStatus int // non-zero forces the refresh endpoint to fail
	signOutStatus int // non-zero forces the logout endpoint to fail
	userStatus    int // non-zero forces the user endpoint to fail

	sessionTTL time.Duration
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "password":
			b.mu.Lock()
			b.signIns++
			b.mu.Unlock()

			var creds struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != testPassword {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.writeSession(w, "access-original", "refresh-original")
		case "refresh_token":
			b.mu.Lock()
			b.refreshes++
			status := b.refreshStatus
			b.mu.Unlock()

			if status != 0 {
				w.WriteHeader(status)
				return
			}
			b.writeSession(w, "access-rotated", "refresh-rotated")
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.signOuts++
		status := b.signOutStatus
		b.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.userGets++
		status := b.userStatus
		b.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(supabase.User{ID: testUserID, Email: testUserEmail})
	})

	mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			b.mu.Lock()
			b.profilePosts++
			b.mu.Unlock()

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`[{"id":"` + testUserID + `","email":"` + testUserEmail + `"}]`))
			return
		}
		// No profile row yet; the manager provisions one on sign-in.
		w.Write([]byte(`[]`))
	})

	return mux
}

func (b *fakeBackend) writeSession(w http.ResponseWriter, accessToken, refreshToken string) {
	ttl := b.sessionTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(supabase.Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(ttl).Unix(),
		RefreshToken: refreshToken,
		User:         supabase.User{ID: testUserID, Email: testUserEmail},
	})
}

func setupManagerTest(t *testing.T, backend *fakeBackend) (*Manager, *sessionstore.Store) {
	t.Helper()

	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.AuthSession{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	store, err := sessionstore.New(db, sessionstore.Config{EncryptionKey: key})
	if err != nil {
		t.Fatalf("Failed to create session store: %v", err)
	}

	client := supabase.NewClient(server.URL, "test-anon-key")
	return NewManager(client, store, testRefreshConfig()), store
}

func drainEvents(ch <-chan StateChange) []StateChange {
	var events []StateChange
	for {
		select {
		case change := <-ch:
			events = append(events, change)
		default:
			return events
		}
	}
}

func TestManagerSignIn(t *testing.T) {
	backend := &fakeBackend{}
	manager, store := setupManagerTest(t, backend)
	events := manager.Subscribe()

	session, err := manager.SignIn(context.Background(), testUserEmail, testPassword)
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if session.AccessToken != "access-original" {
		t.Errorf("Expected access token from backend, got %q", session.AccessToken)
	}
	if manager.UserID() != testUserID {
		t.Errorf("Expected UserID %q, got %q", testUserID, manager.UserID())
	}

	stored, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected session to be persisted")
	}
	if stored.AccessToken != "access-original" {
		t.Errorf("Persisted access token mismatch: %q", stored.AccessToken)
	}

	if backend.profilePosts != 1 {
		t.Errorf("Expected one profile insert, got %d", backend.profilePosts)
	}

	got := drainEvents(events)
	if len(got) != 1 || got[0].Event != EventSignedIn {
		t.Errorf("Expected a single signed_in event, got %+v", got)
	}
	if got[0].Session == nil || got[0].Session.User.ID != testUserID {
		t.Error("Expected the sign-in event to carry the session")
	}
}

func TestManagerSignInInvalidCredentials(t *testing.T) {
	backend := &fakeBackend{}
	manager, store := setupManagerTest(t, backend)

	_, err := manager.SignIn(context.Background(), testUserEmail, "wrong")
	if !errors.Is(err, supabase.ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
	if manager.UserID() != "" {
		t.Error("Expected manager to stay signed out")
	}

	stored, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stored != nil {
		t.Error("Expected nothing persisted after a rejected sign-in")
	}
}

func TestManagerSignOut(t *testing.T) {
	t.Run("revokes and forgets the session", func(t *testing.T) {
		backend := &fakeBackend{}
		manager, store := setupManagerTest(t, backend)
		if _, err := manager.SignIn(context.Background(), testUserEmail, testPassword); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		events := manager.Subscribe()

		if err := manager.SignOut(context.Background()); err != nil {
			t.Fatalf("SignOut failed: %v", err)
		}
		if manager.Session() != nil {
			t.Error("Expected no session after sign-out")
		}
		if backend.signOuts != 1 {
			t.Errorf("Expected one logout call, got %d", backend.signOuts)
		}

		stored, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if stored != nil {
			t.Error("Expected persisted session to be deleted")
		}

		got := drainEvents(events)
		if len(got) != 1 || got[0].Event != EventSignedOut {
			t.Errorf("Expected a single signed_out event, got %+v", got)
		}
	})

	t.Run("returns ErrNoSession when signed out", func(t *testing.T) {
		manager, _ := setupManagerTest(t, &fakeBackend{})
		if err := manager.SignOut(context.Background()); !errors.Is(err, ErrNoSession) {
			t.Errorf("Expected ErrNoSession, got %v", err)
		}
	})

	t.Run("tolerates a backend that already forgot the session", func(t *testing.T) {
		backend := &fakeBackend{signOutStatus: http.StatusUnauthorized}
		manager, store := setupManagerTest(t, backend)
		if _, err := manager.SignIn(context.Background(), testUserEmail, testPassword); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}

		if err := manager.SignOut(context.Background()); err != nil {
			t.Fatalf("Expected remote session-missing to be suppressed, got %v", err)
		}
		stored, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if stored != nil {
			t.Error("Expected the local session to be forgotten anyway")
		}
	})
}

func TestManagerVerify(t *testing.T) {
	t.Run("returns the backend identity for a live session", func(t *testing.T) {
		backend := &fakeBackend{}
		manager, _ := setupManagerTest(t, backend)
		if _, err := manager.SignIn(context.Background(), testUserEmail, testPassword); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}

		user, err := manager.Verify(context.Background())
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if user.ID != testUserID || user.Email != testUserEmail {
			t.Errorf("Expected the backend identity, got %+v", user)
		}
		if backend.userGets != 1 {
			t.Errorf("Expected one user lookup, got %d", backend.userGets)
		}
	})

	t.Run("returns ErrNoSession while signed out", func(t *testing.T) {
		backend := &fakeBackend{}
		manager, _ := setupManagerTest(t, backend)

		if _, err := manager.Verify(context.Background()); !errors.Is(err, ErrNoSession) {
			t.Errorf("Expected ErrNoSession, got %v", err)
		}
		if backend.userGets != 0 {
			t.Error("Expected no backend call while signed out")
		}
	})

	t.Run("maps a rejected token to ErrSessionMissing", func(t *testing.T) {
		backend := &fakeBackend{userStatus: http.StatusUnauthorized}
		manager, _ := setupManagerTest(t, backend)
		if _, err := manager.SignIn(context.Background(), testUserEmail, testPassword); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}

		if _, err := manager.Verify(context.Background()); !errors.Is(err, supabase.ErrSessionMissing) {
			t.Errorf("Expected ErrSessionMissing, got %v", err)
		}
	})
}

func TestManagerRestore(t *testing.T) {
	t.Run("empty store broadcasts a signed-out initial state", func(t *testing.T) {
		manager, _ := setupManagerTest(t, &fakeBackend{})
		events := manager.Subscribe()

		if err := manager.Restore(context.Background()); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if manager.Session() != nil {
			t.Error("Expected no session")
		}

		got := drainEvents(events)
		if len(got) != 1 || got[0].Event != EventInitial || got[0].Session != nil {
			t.Errorf("Expected an initial event with no session, got %+v", got)
		}
	})

	t.Run("fresh session restores without a refresh", func(t *testing.T) {
		backend := &fakeBackend{}
		manager, store := setupManagerTest(t, backend)
		expiry := time.Now().Add(time.Hour)
		if err := store.Save(&entities.DecryptedSession{
			Provider:     sessionstore.ProviderSupabase,
			AccountID:    testUserID,
			Email:        testUserEmail,
			AccessToken:  "access-stored",
			RefreshToken: "refresh-stored",
			TokenType:    "bearer",
			ExpiresAt:    &expiry,
		}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if err := manager.Restore(context.Background()); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		session := manager.Session()
		if session == nil || session.AccessToken != "access-stored" {
			t.Fatalf("Expected the stored session, got %+v", session)
		}
		if backend.refreshes != 0 {
			t.Errorf("Expected no refresh for a fresh session, got %d", backend.refreshes)
		}
	})

	t.Run("stale session is refreshed on boot", func(t *testing.T) {
		backend := &fakeBackend{}
		manager, store := setupManagerTest(t, backend)
		expiry := time.Now().Add(time.Minute) // inside the 5m margin
		if err := store.Save(&entities.DecryptedSession{
			Provider:     sessionstore.ProviderSupabase,
			AccountID:    testUserID,
			Email:        testUserEmail,
			AccessToken:  "access-stale",
			RefreshToken: "refresh-stored",
			TokenType:    "bearer",
			ExpiresAt:    &expiry,
		}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if err := manager.Restore(context.Background()); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		session := manager.Session()
		if session == nil || session.AccessToken != "access-rotated" {
			t.Fatalf("Expected the refreshed session, got %+v", session)
		}

		stored, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if stored.AccessToken != "access-rotated" || stored.RefreshToken != "refresh-rotated" {
			t.Errorf("Expected rotated tokens persisted, got %q / %q", stored.AccessToken, stored.RefreshToken)
		}
	})

	t.Run("rejected refresh token drops the session", func(t *testing.T) {
		backend := &fakeBackend{refreshStatus: http.StatusUnauthorized}
		manager, store := setupManagerTest(t, backend)
		expiry := time.Now().Add(time.Minute)
		if err := store.Save(&entities.DecryptedSession{
			Provider:     sessionstore.ProviderSupabase,
			AccountID:    testUserID,
			Email:        testUserEmail,
			AccessToken:  "access-stale",
			RefreshToken: "refresh-dead",
			TokenType:    "bearer",
			ExpiresAt:    &expiry,
		}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		events := manager.Subscribe()

		if err := manager.Restore(context.Background()); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if manager.Session() != nil {
			t.Error("Expected the expired session to be dropped")
		}

		stored, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if stored != nil {
			t.Error("Expected the persisted session to be deleted")
		}

		got := drainEvents(events)
		if len(got) != 1 || got[0].Event != EventInitial || got[0].Session != nil {
			t.Errorf("Expected a signed-out initial event, got %+v", got)
		}
	})

	t.Run("transient refresh failure keeps the stored session", func(t *testing.T) {
		backend := &fakeBackend{refreshStatus: http.StatusInternalServerError}
		manager, store := setupManagerTest(t, backend)
		expiry := time.Now().Add(time.Minute)
		if err := store.Save(&entities.DecryptedSession{
			Provider:     sessionstore.ProviderSupabase,
			AccountID:    testUserID,
			Email:        testUserEmail,
			AccessToken:  "access-stale",
			RefreshToken: "refresh-stored",
			TokenType:    "bearer",
			ExpiresAt:    &expiry,
		}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if err := manager.Restore(context.Background()); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		session := manager.Session()
		if session == nil || session.AccessToken != "access-stale" {
			t.Fatalf("Expected the stale session to survive a 5xx refresh, got %+v", session)
		}
	})
}

func TestManagerRefreshLoop(t *testing.T) {
	backend := &fakeBackend{sessionTTL: time.Minute} // always inside the margin
	manager, store := setupManagerTest(t, backend)

	if _, err := manager.SignIn(context.Background(), testUserEmail, testPassword); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	events := manager.Subscribe()

	go manager.StartRefreshLoop(context.Background())
	defer manager.Stop()

	select {
	case change := <-events:
		if change.Event != EventTokenRefreshed {
			t.Fatalf("Expected token_refreshed, got %s", change.Event)
		}
		if change.Session == nil || change.Session.AccessToken != "access-rotated" {
			t.Fatal("Expected the event to carry the refreshed session")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the refresh loop")
	}

	if manager.Session().AccessToken != "access-rotated" {
		t.Errorf("Expected the manager to hold the refreshed token, got %q", manager.Session().AccessToken)
	}

	stored, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stored.AccessToken != "access-rotated" {
		t.Errorf("Expected the refreshed token persisted, got %q", stored.AccessToken)
	}
}

func TestManagerRefreshLoopDisabled(t *testing.T) {
	manager, _ := setupManagerTest(t, &fakeBackend{})
	manager.refreshCfg.Enabled = false

	done := make(chan struct{})
	go func() {
		manager.StartRefreshLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected a disabled refresh loop to return immediately")
	}
}
