package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"quotevault/internal/config"
	"quotevault/internal/database"
	"quotevault/internal/database/quotes"
	"quotevault/internal/lockfile"
	"quotevault/internal/sessionstore"
	"quotevault/internal/widget"
)

// WidgetCommand renders the widget snapshot from the read-only store and
// prints the card. No network, no store writes; the widget host invokes
// this on its own cadence.
type WidgetCommand struct {
	DatabasePath string
	Dir          string
	JSON         bool
}

// NewWidgetCommand creates a new WidgetCommand
func NewWidgetCommand() *WidgetCommand {
	return &WidgetCommand{}
}

// ParseFlags parses command line flags
func (cmd *WidgetCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("widget", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the local store")
	fs.StringVar(&cmd.Dir, "dir", cfg.Widget.Dir, "Directory for snapshot files")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the snapshot as JSON instead of the card")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s widget [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Render the widget snapshot from the local store and print it.\n\n")
		fmt.Fprintf(os.Stderr, "Opens the store read-only and works without network access. The\n")
		fmt.Fprintf(os.Stderr, "snapshot and card files are rewritten under the snapshot dir.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the widget command
func (cmd *WidgetCommand) Run() error {
	lock, err := lockfile.AcquireRead(cmd.DatabasePath)
	if err != nil {
		return err
	}
	if lock != nil {
		defer lock.Unlock()
	}

	db, err := database.OpenReadOnly(cmd.DatabasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no journal at %s; the daemon creates it on first run", cmd.DatabasePath)
		}
		return err
	}
	defer db.Close()

	repo := quotes.NewRepository(db.DB)
	renderer := widget.NewRenderer(repo, widget.SessionCheckerFunc(func() (bool, error) {
		return sessionstore.HasSession(db.DB)
	}), nil, cmd.Dir)

	snapshot, err := renderer.Render()
	if err != nil {
		return fmt.Errorf("failed to render snapshot: %w", err)
	}

	if cmd.JSON {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	card, err := os.ReadFile(filepath.Join(renderer.Dir(), widget.CardFileName))
	if err != nil {
		return fmt.Errorf("failed to read card: %w", err)
	}
	fmt.Print(string(card))
	return nil
}
