// Package sync reconciles the local quote journal with the remote store
// and owns every journal mutation.
//
// Writes are optimistic and local-first: records are inserted, promoted
// or deleted locally before the remote mirror hears about it, and the
// remote call is queued on the outbox rather than awaited. The
// reconciliation pass treats the fetched remote collection as the source
// of truth with two exceptions protecting unconfirmed local work:
// records never confirmed remote (synced_at NULL) are kept, and record
// ids with a live tombstone are not resurrected.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quotevault/internal/database/quotes"
	"quotevault/internal/entities"
	"quotevault/internal/settingsstore"
	"quotevault/internal/supabase"
)

// ErrNotSignedIn is returned by journal mutations that need a session.
var ErrNotSignedIn = errors.New("not signed in")

// RemoteClient is the slice of the backend client the service needs.
type RemoteClient interface {
	ListQuotes(ctx context.Context, session *supabase.Session) ([]supabase.QuoteRow, error)
}

// SessionSource yields the active session, nil when signed out.
type SessionSource interface {
	Session() *supabase.Session
}

// Enqueuer schedules remote mirror work on the outbox.
type Enqueuer interface {
	EnqueuePush(ctx context.Context, quoteID string) error
	EnqueueDelete(ctx context.Context, quoteID, userID string) error
	EnqueuePromote(ctx context.Context, quoteID string, ts time.Time) error
}

// Refresher is told when the widget snapshot should be re-rendered.
type Refresher interface {
	RequestRefresh()
}

// Service implements the journal operations and the reconciliation pass.
type Service struct {
	repo     *quotes.Repository
	remote   RemoteClient
	sessions SessionSource
	outbox   Enqueuer
	status   *settingsstore.SettingsStore
	widget   Refresher
}

// NewService wires the sync service. outbox and widget may be nil; local
// behavior does not depend on either.
func NewService(repo *quotes.Repository, remote RemoteClient, sessions SessionSource, outbox Enqueuer, status *settingsstore.SettingsStore, widget Refresher) *Service {
	return &Service{
		repo:     repo,
		remote:   remote,
		sessions: sessions,
		outbox:   outbox,
		status:   status,
		widget:   widget,
	}
}

// SyncOnLaunch fetches the user's full remote collection and reconciles
// the local journal against it. Signed out it is a silent no-op. A fetch
// failure is recorded in the sync status and returned without touching a
// single local record; only a successful fetch may delete anything.
func (s *Service) SyncOnLaunch(ctx context.Context) error {
	session := s.sessions.Session()
	if session == nil {
		return nil
	}

	start := time.Now()

	rows, err := s.remote.ListQuotes(ctx, session)
	if err != nil {
		log.Printf("Sync: remote fetch failed: %v", err)
		s.recordStatus(settingsstore.SyncStatusFailed, "Remote fetch failed: "+err.Error(), 0)
		return fmt.Errorf("remote fetch failed: %w", err)
	}

	inserted, updated, deleted, err := s.reconcile(session.User.ID, rows)
	if err != nil {
		log.Printf("Sync: reconciliation failed: %v", err)
		s.recordStatus(settingsstore.SyncStatusFailed, "Reconciliation failed: "+err.Error(), len(rows))
		return err
	}

	msg := fmt.Sprintf("Pulled %d quotes (%d new, %d updated, %d removed) in %s",
		len(rows), inserted, updated, deleted, time.Since(start).Round(time.Millisecond))
	s.recordStatus(settingsstore.SyncStatusSuccess, msg, len(rows))
	log.Printf("Sync: %s", msg)

	s.requestWidgetRefresh()
	return nil
}

// reconcile makes the local collection match the fetched rows. Remote
// rows missing locally are inserted, shared ids are overwritten from the
// remote copy, and local records absent remotely are deleted unless they
// were never confirmed remote.
func (s *Service) reconcile(userID string, rows []supabase.QuoteRow) (inserted, updated, deleted int, err error) {
	local, err := s.repo.AllForUser(userID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to load local quotes: %w", err)
	}
	tombstoned, err := s.repo.TombstonedIDs(userID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to load tombstones: %w", err)
	}

	localByID := make(map[string]*entities.Quote, len(local))
	for i := range local {
		localByID[local[i].ID] = &local[i]
	}

	now := time.Now()
	remoteIDs := make(map[string]bool, len(rows))
	for _, row := range rows {
		remoteIDs[row.ID] = true

		if tombstoned[row.ID] {
			// Deleted locally with the remote delete still queued.
			continue
		}

		if existing, ok := localByID[row.ID]; ok {
			applyRow(existing, row)
			syncedAt := now
			existing.SyncedAt = &syncedAt
			if err := s.repo.Save(existing); err != nil {
				return inserted, updated, deleted, fmt.Errorf("failed to update quote %s: %w", row.ID, err)
			}
			updated++
			continue
		}

		if err := s.repo.Create(quoteFromRow(row, now)); err != nil {
			return inserted, updated, deleted, fmt.Errorf("failed to insert quote %s: %w", row.ID, err)
		}
		inserted++
	}

	for i := range local {
		if remoteIDs[local[i].ID] {
			continue
		}
		if local[i].SyncedAt == nil {
			// Never confirmed remote: a queued push, not a remote deletion.
			continue
		}
		if err := s.repo.Delete(local[i].ID); err != nil {
			return inserted, updated, deleted, fmt.Errorf("failed to delete quote %s: %w", local[i].ID, err)
		}
		deleted++
	}

	return inserted, updated, deleted, nil
}

// Add inserts a new journal record and queues its remote push. The
// record is returned immediately and survives any remote outcome.
func (s *Service) Add(ctx context.Context, text string) (*entities.Quote, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrNotSignedIn
	}

	quote := &entities.Quote{
		ID:        uuid.NewString(),
		UserID:    session.User.ID,
		Text:      text,
		Timestamp: time.Now(),
	}
	if err := s.repo.Create(quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.enqueuePush(ctx, quote.ID)
	s.requestWidgetRefresh()
	return quote, nil
}

// AddFavorite inserts a favorite record. Favorites carry the author and
// categories from the discovery feed and are records of their own, not
// flags on existing ones.
func (s *Service) AddFavorite(ctx context.Context, text, author string, categories []string) (*entities.Quote, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrNotSignedIn
	}

	quote := &entities.Quote{
		ID:         uuid.NewString(),
		UserID:     session.User.ID,
		Text:       text,
		Author:     author,
		Categories: entities.StringList(categories),
		IsFavorite: true,
		Timestamp:  time.Now(),
	}
	if err := s.repo.Create(quote); err != nil {
		return nil, fmt.Errorf("failed to create favorite: %w", err)
	}

	s.enqueuePush(ctx, quote.ID)
	s.requestWidgetRefresh()
	return quote, nil
}

// Delete removes a record locally and queues the remote delete. The
// tombstone keeps a reconciliation pass from resurrecting the record
// before the remote delete lands. Local deletion is never rolled back.
func (s *Service) Delete(ctx context.Context, id string) error {
	session := s.sessions.Session()
	if session == nil {
		return ErrNotSignedIn
	}

	quote, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if quote.UserID != session.User.ID {
		return gorm.ErrRecordNotFound
	}

	if err := s.repo.CreateTombstone(quote.ID, quote.UserID); err != nil {
		return fmt.Errorf("failed to record tombstone: %w", err)
	}
	if err := s.repo.Delete(quote.ID); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}

	s.enqueueDelete(ctx, quote.ID, quote.UserID)
	s.requestWidgetRefresh()
	return nil
}

// RemoveFavorite deletes a favorite record. Favorites are standalone
// records, so removal is the plain delete path.
func (s *Service) RemoveFavorite(ctx context.Context, id string) error {
	return s.Delete(ctx, id)
}

// Promote makes a record the current quote by rewriting its timestamp to
// now. Display recency is last touch, not creation time.
func (s *Service) Promote(ctx context.Context, id string) (*entities.Quote, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrNotSignedIn
	}

	quote, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if quote.UserID != session.User.ID {
		return nil, gorm.ErrRecordNotFound
	}

	now := time.Now()
	if err := s.repo.SetTimestamp(quote.ID, now); err != nil {
		return nil, fmt.Errorf("failed to promote quote: %w", err)
	}
	quote.Timestamp = now
	quote.SyncedAt = nil

	s.enqueuePromote(ctx, quote.ID, now)
	s.requestWidgetRefresh()
	return quote, nil
}

// FindExisting looks for a favorite matching text and author exactly,
// used to decide whether a discovered quote is already in the journal.
func (s *Service) FindExisting(ctx context.Context, text, author string) (*entities.Quote, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrNotSignedIn
	}
	return s.repo.FindFavorite(session.User.ID, text, author)
}

// Current returns the record the widget shows, the one with the maximum
// timestamp.
func (s *Service) Current(ctx context.Context) (*entities.Quote, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrNotSignedIn
	}
	return s.repo.Current(session.User.ID)
}

// RequeuePending re-enqueues remote work for records whose push was
// never confirmed and for tombstones whose remote delete never landed.
// Runs on boot and on sign-in, so queue retries that exhausted their
// attempts are picked back up.
func (s *Service) RequeuePending(ctx context.Context) {
	session := s.sessions.Session()
	if session == nil || s.outbox == nil {
		return
	}

	local, err := s.repo.AllForUser(session.User.ID)
	if err != nil {
		log.Printf("Sync: failed to scan for pending pushes: %v", err)
		return
	}
	pushes := 0
	for i := range local {
		if local[i].SyncedAt != nil {
			continue
		}
		s.enqueuePush(ctx, local[i].ID)
		pushes++
	}

	tombstoned, err := s.repo.TombstonedIDs(session.User.ID)
	if err != nil {
		log.Printf("Sync: failed to scan tombstones: %v", err)
		return
	}
	for id := range tombstoned {
		s.enqueueDelete(ctx, id, session.User.ID)
	}

	if pushes > 0 || len(tombstoned) > 0 {
		log.Printf("Sync: requeued %d pushes and %d deletes", pushes, len(tombstoned))
	}
}

func (s *Service) recordStatus(status, message string, quotesPulled int) {
	if err := s.status.SetSyncStatus(status, message, quotesPulled); err != nil {
		log.Printf("Sync: failed to record sync status: %v", err)
	}
}

func (s *Service) enqueuePush(ctx context.Context, quoteID string) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.EnqueuePush(ctx, quoteID); err != nil {
		log.Printf("Sync: failed to queue remote push for %s: %v", quoteID, err)
	}
}

func (s *Service) enqueueDelete(ctx context.Context, quoteID, userID string) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.EnqueueDelete(ctx, quoteID, userID); err != nil {
		log.Printf("Sync: failed to queue remote delete for %s: %v", quoteID, err)
	}
}

func (s *Service) enqueuePromote(ctx context.Context, quoteID string, ts time.Time) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.EnqueuePromote(ctx, quoteID, ts); err != nil {
		log.Printf("Sync: failed to queue timestamp update for %s: %v", quoteID, err)
	}
}

func (s *Service) requestWidgetRefresh() {
	if s.widget != nil {
		s.widget.RequestRefresh()
	}
}

func applyRow(quote *entities.Quote, row supabase.QuoteRow) {
	quote.Text = row.Text
	quote.Author = row.Author
	quote.Categories = entities.StringList(row.Categories)
	quote.IsFavorite = row.IsFavorite
	quote.Timestamp = row.Timestamp
}

func quoteFromRow(row supabase.QuoteRow, syncedAt time.Time) *entities.Quote {
	at := syncedAt
	return &entities.Quote{
		ID:         row.ID,
		UserID:     row.UserID,
		Text:       row.Text,
		Author:     row.Author,
		Categories: entities.StringList(row.Categories),
		IsFavorite: row.IsFavorite,
		Timestamp:  row.Timestamp,
		SyncedAt:   &at,
	}
}
