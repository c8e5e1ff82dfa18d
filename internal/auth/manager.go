package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quotevault/internal/config"
	"quotevault/internal/entities"
	"quotevault/internal/sessionstore"
	"quotevault/internal/supabase"
)

// Event is an auth state stream event kind.
type Event string

const (
	// EventInitial is emitted once per subscriber-visible boot, carrying
	// whatever session was restored from disk (possibly none).
	EventInitial Event = "initial"
	// EventSignedIn follows a successful interactive sign-in.
	EventSignedIn Event = "signed_in"
	// EventSignedOut follows a sign-out, local or server-initiated.
	EventSignedOut Event = "signed_out"
	// EventTokenRefreshed follows a background or boot-time token refresh.
	EventTokenRefreshed Event = "token_refreshed"
)

// StateChange pairs an event with the session that produced it.
// Session is nil for signed-out states.
type StateChange struct {
	Event   Event
	Session *supabase.Session
}

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = errors.New("not signed in")

// Manager holds the current backend session and broadcasts changes.
type Manager struct {
	mu      sync.RWMutex
	session *supabase.Session

	client *supabase.Client
	store  *sessionstore.Store

	subMu       sync.Mutex
	subscribers []chan StateChange

	refreshCfg config.TokenRefresh
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewManager creates a session manager over the backend client and the
// encrypted session store.
func NewManager(client *supabase.Client, store *sessionstore.Store, refreshCfg config.TokenRefresh) *Manager {
	return &Manager{
		client:     client,
		store:      store,
		refreshCfg: refreshCfg,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Restore loads the persisted session on boot, refreshing it when the
// access token is already stale. It always broadcasts EventInitial so
// subscribers learn the starting state.
func (m *Manager) Restore(ctx context.Context) error {
	stored, err := m.store.Load()
	if err != nil {
		return err
	}

	if stored == nil {
		m.broadcast(StateChange{Event: EventInitial})
		return nil
	}

	session := decryptedToSession(stored)

	if sessionExpiringSoon(session, m.refreshCfg.RefreshMargin) && session.RefreshToken != "" {
		fresh, err := m.client.Refresh(ctx, session.RefreshToken)
		if err != nil {
			if errors.Is(err, supabase.ErrSessionExpired) {
				log.Printf("Auth: persisted session expired, sign-in required")
				if delErr := m.store.Delete(stored.AccountID); delErr != nil {
					log.Printf("Auth: failed to drop expired session: %v", delErr)
				}
				m.broadcast(StateChange{Event: EventInitial})
				return nil
			}
			// Keep the stored session; the refresh loop will retry.
			log.Printf("Auth: boot-time refresh failed: %v", err)
		} else {
			session = fresh
			m.persistRefreshed(fresh)
		}
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	log.Printf("Auth: restored session for %s", session.User.Email)
	m.broadcast(StateChange{Event: EventInitial, Session: session})
	return nil
}

// SignIn authenticates with email and password, persists the session and
// lazily provisions the remote profile row.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*supabase.Session, error) {
	session, err := m.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(sessionToDecrypted(session)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.ensureProfile(ctx, session)

	log.Printf("Auth: signed in as %s", session.User.Email)
	m.broadcast(StateChange{Event: EventSignedIn, Session: session})
	return session, nil
}

// SignOut revokes the session remotely and forgets it locally. A backend
// that already forgot the session is treated as success; that error is
// routine after token expiry.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session == nil {
		return ErrNoSession
	}

	if err := m.client.SignOut(ctx, session.AccessToken); err != nil {
		if !errors.Is(err, supabase.ErrSessionMissing) {
			log.Printf("Auth: remote sign-out failed: %v", err)
		}
	}

	if err := m.store.Delete(session.User.ID); err != nil {
		return err
	}

	log.Printf("Auth: signed out %s", session.User.Email)
	m.broadcast(StateChange{Event: EventSignedOut})
	return nil
}

// Verify round-trips the current session to the backend and returns the
// account it belongs to. Unlike Session, which reports local state, this
// confirms the access token is still honored.
func (m *Manager) Verify(ctx context.Context) (*supabase.User, error) {
	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()

	if session == nil {
		return nil, ErrNoSession
	}
	return m.client.GetUser(ctx, session.AccessToken)
}

// Session returns the current session, or nil when signed out.
func (m *Manager) Session() *supabase.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// UserID returns the signed-in account UUID, or "" when signed out.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.User.ID
}

// Subscribe registers a state stream consumer. The channel is buffered;
// a consumer that falls behind misses intermediate events rather than
// blocking the manager.
func (m *Manager) Subscribe() <-chan StateChange {
	ch := make(chan StateChange, 8)
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Manager) broadcast(change StateChange) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}

// StartRefreshLoop keeps the access token fresh in the background. It
// blocks until Stop is called or the context is cancelled, so run it in
// its own goroutine.
func (m *Manager) StartRefreshLoop(ctx context.Context) {
	if !m.refreshCfg.Enabled {
		log.Println("Auth: token refresh loop disabled")
		close(m.doneCh)
		return
	}

	log.Printf("Auth: token refresh loop started (interval: %v, margin: %v)",
		m.refreshCfg.CheckInterval, m.refreshCfg.RefreshMargin)

	ticker := time.NewTicker(m.refreshCfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.refreshIfExpiring(ctx)
		case <-m.stopCh:
			log.Println("Auth: token refresh loop stopping")
			close(m.doneCh)
			return
		case <-ctx.Done():
			log.Println("Auth: token refresh loop context cancelled")
			close(m.doneCh)
			return
		}
	}
}

// Stop gracefully stops the refresh loop.
func (m *Manager) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Manager) refreshIfExpiring(ctx context.Context) {
	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()

	if session == nil || session.RefreshToken == "" {
		return
	}
	if !sessionExpiringSoon(session, m.refreshCfg.RefreshMargin) {
		return
	}

	log.Printf("Auth: refreshing expiring session for %s", session.User.Email)

	fresh, err := m.client.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if errors.Is(err, supabase.ErrSessionExpired) {
			log.Printf("Auth: refresh token rejected, signing out")
			m.mu.Lock()
			m.session = nil
			m.mu.Unlock()
			if delErr := m.store.Delete(session.User.ID); delErr != nil {
				log.Printf("Auth: failed to drop rejected session: %v", delErr)
			}
			m.broadcast(StateChange{Event: EventSignedOut})
			return
		}
		log.Printf("Auth: token refresh failed: %v", err)
		return
	}

	m.mu.Lock()
	m.session = fresh
	m.mu.Unlock()

	m.persistRefreshed(fresh)
	m.broadcast(StateChange{Event: EventTokenRefreshed, Session: fresh})
}

func (m *Manager) persistRefreshed(session *supabase.Session) {
	expiry := session.ExpiryTime()
	if err := m.store.UpdateAfterRefresh(session.User.ID, session.AccessToken, session.RefreshToken, &expiry); err != nil {
		log.Printf("Auth: failed to persist refreshed session: %v", err)
	}
}

// ensureProfile provisions the remote profile row on first sign-in.
// Failures are logged, not fatal; the row gets another chance on the next
// sign-in.
func (m *Manager) ensureProfile(ctx context.Context, session *supabase.Session) {
	_, err := m.client.GetProfile(ctx, session, session.User.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, supabase.ErrNotFound) {
		log.Printf("Auth: profile lookup failed: %v", err)
		return
	}

	_, err = m.client.CreateProfile(ctx, session, supabase.ProfileRow{
		ID:    session.User.ID,
		Email: session.User.Email,
	})
	if err != nil {
		log.Printf("Auth: profile creation failed: %v", err)
		return
	}
	log.Printf("Auth: created profile row for %s", session.User.Email)
}

func sessionExpiringSoon(session *supabase.Session, margin time.Duration) bool {
	return time.Now().Add(margin).After(session.ExpiryTime())
}

func sessionToDecrypted(session *supabase.Session) *entities.DecryptedSession {
	expiry := session.ExpiryTime()
	return &entities.DecryptedSession{
		Provider:     sessionstore.ProviderSupabase,
		AccountID:    session.User.ID,
		Email:        session.User.Email,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresAt:    &expiry,
	}
}

func decryptedToSession(stored *entities.DecryptedSession) *supabase.Session {
	session := &supabase.Session{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		User: supabase.User{
			ID:    stored.AccountID,
			Email: stored.Email,
		},
	}
	if stored.ExpiresAt != nil {
		session.ExpiresAt = stored.ExpiresAt.Unix()
	}
	return session
}
