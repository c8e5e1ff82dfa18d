// Package cli implements the terminal subcommands. Each command owns its
// flag set and runs against the same store the daemon serves; writers
// take the store lock, so they refuse to run next to a live daemon.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"quotevault/internal/auth"
	"quotevault/internal/config"
	"quotevault/internal/database"
	"quotevault/internal/lockfile"
	"quotevault/internal/sessionstore"
	"quotevault/internal/supabase"
)

// SignInCommand establishes the persisted backend session.
type SignInCommand struct {
	Email        string
	Password     string
	DatabasePath string
}

// NewSignInCommand creates a new SignInCommand
func NewSignInCommand() *SignInCommand {
	return &SignInCommand{}
}

// ParseFlags parses command line flags
func (cmd *SignInCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("signin", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.Email, "email", "", "Account email (prompted when omitted)")
	fs.StringVar(&cmd.Password, "password", "", "Account password (prompted when omitted)")
	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the local store")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s signin [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sign in to the backend and persist the session locally.\n\n")
		fmt.Fprintf(os.Stderr, "The session is stored encrypted next to the journal. A running\n")
		fmt.Fprintf(os.Stderr, "daemon holds the store lock; stop it first or sign in through\n")
		fmt.Fprintf(os.Stderr, "its API instead.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s signin\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s signin -email me@example.com\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the signin command
func (cmd *SignInCommand) Run() error {
	cfg := config.NewConfig()
	if cfg.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is not configured")
	}

	if cmd.Email == "" {
		email, err := promptLine("Email: ")
		if err != nil {
			return err
		}
		cmd.Email = email
	}
	if cmd.Email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if cmd.Password == "" {
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		cmd.Password = password
	}
	if cmd.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	lock, err := lockfile.AcquireWrite(cmd.DatabasePath)
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			return fmt.Errorf("the store is locked (daemon running?); stop it or use POST /api/auth/signin")
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

	session, err := manager.SignIn(context.Background(), cmd.Email, cmd.Password)
	if err != nil {
		if errors.Is(err, supabase.ErrInvalidCredentials) {
			return fmt.Errorf("invalid email or password")
		}
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Printf("✅ Signed in as %s (user %s)\n", session.User.Email, session.User.ID)
	fmt.Printf("   Session expires %s\n", session.ExpiryTime().Format("2006-01-02 15:04:05"))
	fmt.Printf("\nRun '%s sync' to pull your journal.\n", os.Args[0])
	return nil
}

// promptLine reads one trimmed line from stdin.
func promptLine(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read for piped input.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}

	fmt.Print(label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
