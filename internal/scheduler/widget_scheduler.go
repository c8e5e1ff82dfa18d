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

// Refresher re-renders the widget snapshot.
type Refresher interface {
	RequestRefresh()
}

// WidgetScheduler re-renders the widget snapshot on a cron cadence, so
// the card stays fresh even when nothing mutates the journal.
type WidgetScheduler struct {
	settingsStore *settingsstore.SettingsStore
	refresher     Refresher

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewWidgetScheduler creates a scheduler instance.
func NewWidgetScheduler(settingsStore *settingsstore.SettingsStore, refresher Refresher) *WidgetScheduler {
	return &WidgetScheduler{
		settingsStore: settingsStore,
		refresher:     refresher,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *WidgetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	schedule := s.settingsStore.GetWidgetSchedule()
	if err := settingsstore.ValidateCronSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		log.Printf("Widget scheduler: rendering snapshot")
		s.refresher.RequestRefresh()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule widget render: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(schedule)
	log.Printf("Widget scheduler: started with schedule '%s' (%s). Next run: %v",
		schedule,
		settingsstore.GetCronDescription(schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *WidgetScheduler) Stop() {
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

	ctx := s.cron.Stop()
	<-ctx.Done()

	log.Printf("Widget scheduler: stopped")
}

// Reschedule restarts the scheduler so schedule changes take effect.
func (s *WidgetScheduler) Reschedule() error {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	return s.Start(context.Background())
}

// IsRunning returns whether the scheduler is active.
func (s *WidgetScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next render will occur.
func (s *WidgetScheduler) GetNextRunTime() *time.Time {
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
