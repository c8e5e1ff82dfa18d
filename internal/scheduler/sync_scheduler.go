// Package scheduler runs the periodic jobs of the daemon: the remote
// reconciliation pass and the widget snapshot render.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"quotevault/internal/settingsstore"
)

// syncPassTimeout bounds one reconciliation pass. A pass is a single
// paged fetch plus local writes, so minutes of budget means a hung
// network, not slow progress.
const syncPassTimeout = 2 * time.Minute

// SyncRunner runs one reconciliation pass against the remote collection.
type SyncRunner interface {
	SyncOnLaunch(ctx context.Context) error
}

// SessionChecker reports the signed-in account, "" when signed out.
type SessionChecker interface {
	UserID() string
}

// SyncScheduler manages the periodic reconciliation pass.
type SyncScheduler struct {
	settingsStore *settingsstore.SettingsStore
	service       SyncRunner
	sessions      SessionChecker

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
}

// NewSyncScheduler creates a scheduler instance.
func NewSyncScheduler(settingsStore *settingsstore.SettingsStore, service SyncRunner, sessions SessionChecker) *SyncScheduler {
	return &SyncScheduler{
		settingsStore: settingsStore,
		service:       service,
		sessions:      sessions,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if sync is enabled.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.settingsStore.GetSyncEnabled() {
		log.Printf("Sync scheduler: disabled")
		return nil
	}

	schedule := s.settingsStore.GetSyncSchedule()
	if err := settingsstore.ValidateCronSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(schedule)
	log.Printf("Sync scheduler: started with schedule '%s' (%s). Next run: %v",
		schedule,
		settingsstore.GetCronDescription(schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running pass.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Wait outside the lock: a draining pass still needs the mutex to
	// clear isSyncing.
	ctx := s.cron.Stop()
	<-ctx.Done()

	log.Printf("Sync scheduler: stopped")
}

// Reschedule restarts the scheduler so schedule or enabled changes take
// effect.
func (s *SyncScheduler) Reschedule() error {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	return s.Start(context.Background())
}

// RunNow triggers an immediate pass without waiting for the schedule.
func (s *SyncScheduler) RunNow() {
	go s.runSync()
}

// IsRunning returns whether the scheduler is active.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a pass is currently in progress.
func (s *SyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next pass will occur.
func (s *SyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSync performs one reconciliation pass. Overlapping triggers are
// dropped, not queued.
func (s *SyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Sync scheduler: skipped (already syncing)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if !s.settingsStore.GetSyncEnabled() {
		log.Printf("Sync scheduler: skipped (disabled)")
		return
	}

	if s.sessions.UserID() == "" {
		log.Printf("Sync scheduler: skipped (signed out)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncPassTimeout)
	defer cancel()

	// The pass records its own status; the scheduler only logs.
	if err := s.service.SyncOnLaunch(ctx); err != nil {
		log.Printf("Sync scheduler: pass failed: %v", err)
	}
}
