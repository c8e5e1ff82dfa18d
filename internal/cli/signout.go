package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"quotevault/internal/auth"
	"quotevault/internal/config"
	"quotevault/internal/database"
	"quotevault/internal/lockfile"
	"quotevault/internal/sessionstore"
	"quotevault/internal/supabase"
)

// SignOutCommand revokes the backend session and forgets it locally.
type SignOutCommand struct {
	DatabasePath string
}

// NewSignOutCommand creates a new SignOutCommand
func NewSignOutCommand() *SignOutCommand {
	return &SignOutCommand{}
}

// ParseFlags parses command line flags
func (cmd *SignOutCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("signout", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the local store")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s signout [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sign out: revoke the backend session and delete the local copy.\n")
		fmt.Fprintf(os.Stderr, "The journal itself stays on disk.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the signout command
func (cmd *SignOutCommand) Run() error {
	cfg := config.NewConfig()

	lock, err := lockfile.AcquireWrite(cmd.DatabasePath)
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			return fmt.Errorf("the store is locked (daemon running?); stop it or use POST /api/auth/signout")
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

	ctx := context.Background()
	if err := manager.Restore(ctx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	email := ""
	if session := manager.Session(); session != nil {
		email = session.User.Email
	}

	if err := manager.SignOut(ctx); err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			fmt.Println("Already signed out.")
			return nil
		}
		return fmt.Errorf("sign-out failed: %w", err)
	}

	fmt.Printf("✅ Signed out %s\n", email)
	return nil
}
