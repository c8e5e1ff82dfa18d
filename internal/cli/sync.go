package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"quotevault/internal/auth"
	"quotevault/internal/config"
	"quotevault/internal/database"
	"quotevault/internal/database/quotes"
	"quotevault/internal/lockfile"
	"quotevault/internal/sessionstore"
	"quotevault/internal/settingsstore"
	"quotevault/internal/supabase"
	"quotevault/internal/sync"
	"quotevault/internal/widget"
)

// SyncCommand runs one reconciliation pass against the backend.
type SyncCommand struct {
	DatabasePath string
	Timeout      time.Duration
}

// NewSyncCommand creates a new SyncCommand
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the local store")
	fs.DurationVar(&cmd.Timeout, "timeout", 2*time.Minute, "Abort the pass after this long")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Pull the remote journal and reconcile the local copy against it.\n\n")
		fmt.Fprintf(os.Stderr, "Requires a persisted session (see '%s signin'). Queued outbox\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "pushes are left for the daemon; this command only pulls.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the sync command
func (cmd *SyncCommand) Run() error {
	cfg := config.NewConfig()
	if cfg.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is not configured")
	}

	lock, err := lockfile.AcquireWrite(cmd.DatabasePath)
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			return fmt.Errorf("the store is locked (daemon running?); stop it or use POST /api/sync/run")
		}
		return err
	}
	defer lock.Unlock()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	store, err := sessionstore.New(db.DB, sessionstore.Config{})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	manager := auth.NewManager(client, store, cfg.TokenRefresh)

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	if err := manager.Restore(ctx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	session := manager.Session()
	if session == nil {
		return fmt.Errorf("not signed in; run '%s signin' first", os.Args[0])
	}

	fmt.Printf("🔄 Syncing journal for %s\n", session.User.Email)

	repo := quotes.NewRepository(db.DB)
	settings := settingsstore.New(db)
	renderer := widget.NewRenderer(repo, widget.SessionCheckerFunc(func() (bool, error) {
		return manager.UserID() != "", nil
	}), settings, cfg.Widget.Dir)

	service := sync.NewService(repo, client, manager, nil, settings, renderer)
	if err := service.SyncOnLaunch(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status := settings.GetSyncStatus()
	if status.Message != "" {
		fmt.Printf("   %s\n", status.Message)
	}

	total, err := repo.CountForUser(session.User.ID)
	if err == nil {
		fmt.Printf("📚 Journal holds %d quotes\n", total)
	}

	fmt.Println("✅ Sync complete")
	return nil
}
