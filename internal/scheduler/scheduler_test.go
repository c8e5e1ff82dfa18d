package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotevault/internal/database"
	"quotevault/internal/entities"
	"quotevault/internal/settingsstore"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
	err   error
}

func (f *fakeRunner) SyncOnLaunch(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSessions struct {
	userID string
}

func (f *fakeSessions) UserID() string { return f.userID }

type fakeRefresher struct {
	renders atomic.Int64
}

func (f *fakeRefresher) RequestRefresh() { f.renders.Add(1) }

func setupStore(t *testing.T) (*database.Database, *settingsstore.SettingsStore) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "quotevault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, settingsstore.New(db)
}

func TestSyncSchedulerStartStop(t *testing.T) {
	_, store := setupStore(t)
	scheduler := NewSyncScheduler(store, &fakeRunner{}, &fakeSessions{userID: testUserID})

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	nextRun := scheduler.GetNextRunTime()
	require.NotNil(t, nextRun)
	assert.True(t, nextRun.After(time.Now()))

	// Starting twice is a no-op.
	require.NoError(t, scheduler.Start(context.Background()))

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
	assert.Nil(t, scheduler.GetNextRunTime())
}

func TestSyncSchedulerDisabled(t *testing.T) {
	_, store := setupStore(t)
	require.NoError(t, store.SetSyncEnabled(false))

	scheduler := NewSyncScheduler(store, &fakeRunner{}, &fakeSessions{userID: testUserID})
	require.NoError(t, scheduler.Start(context.Background()))
	assert.False(t, scheduler.IsRunning())
}

func TestSyncSchedulerInvalidSchedule(t *testing.T) {
	db, store := setupStore(t)
	require.NoError(t, db.SetSetting(entities.SettingKeySyncSchedule, "every now and then"))

	scheduler := NewSyncScheduler(store, &fakeRunner{}, &fakeSessions{userID: testUserID})
	err := scheduler.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
}

func TestSyncSchedulerRunNow(t *testing.T) {
	_, store := setupStore(t)
	runner := &fakeRunner{}
	scheduler := NewSyncScheduler(store, runner, &fakeSessions{userID: testUserID})

	scheduler.RunNow()
	require.Eventually(t, func() bool {
		return runner.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncSchedulerRunNowSignedOut(t *testing.T) {
	_, store := setupStore(t)
	runner := &fakeRunner{}
	scheduler := NewSyncScheduler(store, runner, &fakeSessions{})

	scheduler.RunNow()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, runner.count())
	assert.False(t, scheduler.IsSyncing())
}

func TestSyncSchedulerDropsOverlappingRuns(t *testing.T) {
	_, store := setupStore(t)
	runner := &fakeRunner{block: make(chan struct{})}
	scheduler := NewSyncScheduler(store, runner, &fakeSessions{userID: testUserID})

	scheduler.RunNow()
	require.Eventually(t, func() bool {
		return scheduler.IsSyncing()
	}, 2*time.Second, 10*time.Millisecond)

	scheduler.RunNow()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, runner.count())

	close(runner.block)
	require.Eventually(t, func() bool {
		return !scheduler.IsSyncing()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, runner.count())
}

func TestSyncSchedulerReschedule(t *testing.T) {
	_, store := setupStore(t)
	scheduler := NewSyncScheduler(store, &fakeRunner{}, &fakeSessions{userID: testUserID})
	require.NoError(t, scheduler.Start(context.Background()))

	require.NoError(t, store.SetSyncSchedule("*/5 * * * *"))
	require.NoError(t, scheduler.Reschedule())
	assert.True(t, scheduler.IsRunning())

	nextRun := scheduler.GetNextRunTime()
	require.NotNil(t, nextRun)
	assert.LessOrEqual(t, time.Until(*nextRun), 5*time.Minute)

	scheduler.Stop()
}

func TestWidgetSchedulerStartStop(t *testing.T) {
	_, store := setupStore(t)
	refresher := &fakeRefresher{}
	scheduler := NewWidgetScheduler(store, refresher)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	nextRun := scheduler.GetNextRunTime()
	require.NotNil(t, nextRun)
	assert.LessOrEqual(t, time.Until(*nextRun), 15*time.Minute)

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
}

func TestWidgetSchedulerInvalidSchedule(t *testing.T) {
	db, store := setupStore(t)
	require.NoError(t, db.SetSetting(entities.SettingKeyWidgetSchedule, "fortnightly"))

	scheduler := NewWidgetScheduler(store, &fakeRefresher{})
	err := scheduler.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
}

func TestSyncSchedulerStopsOnContextCancel(t *testing.T) {
	_, store := setupStore(t)
	scheduler := NewSyncScheduler(store, &fakeRunner{}, &fakeSessions{userID: testUserID})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))
	require.True(t, scheduler.IsRunning())

	cancel()
	require.Eventually(t, func() bool {
		return !scheduler.IsRunning()
	}, 2*time.Second, 10*time.Millisecond)
}
