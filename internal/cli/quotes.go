package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gorm.io/gorm"

	"quotevault/internal/config"
	"quotevault/internal/database"
	"quotevault/internal/database/quotes"
	"quotevault/internal/entities"
	"quotevault/internal/lockfile"
	"quotevault/internal/sessionstore"
)

// QuotesCommand lists the local journal. Read-only; safe to run next to
// a live daemon.
type QuotesCommand struct {
	DatabasePath  string
	Limit         int
	FavoritesOnly bool
}

// NewQuotesCommand creates a new QuotesCommand
func NewQuotesCommand() *QuotesCommand {
	return &QuotesCommand{}
}

// ParseFlags parses command line flags
func (cmd *QuotesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("quotes", flag.ExitOnError)
	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the local store")
	fs.IntVar(&cmd.Limit, "limit", 20, "Rows to show, newest first (0 = all)")
	fs.BoolVar(&cmd.FavoritesOnly, "favorites", false, "Show only favorites")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s quotes [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the local journal as a table, newest first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s quotes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s quotes -favorites -limit 0\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the quotes command
func (cmd *QuotesCommand) Run() error {
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
			return fmt.Errorf("no journal at %s; start the daemon or sign in first", cmd.DatabasePath)
		}
		return err
	}
	defer db.Close()

	session, err := sessionstore.ActiveAccount(db.DB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("Signed out. Run '%s signin' first.\n", os.Args[0])
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}

	repo := quotes.NewRepository(db.DB)
	all, err := repo.AllForUser(session.AccountID)
	if err != nil {
		return fmt.Errorf("failed to list quotes: %w", err)
	}

	favorites := 0
	for _, q := range all {
		if q.IsFavorite {
			favorites++
		}
	}

	rows := all
	if cmd.FavoritesOnly {
		rows = make([]entities.Quote, 0, favorites)
		for _, q := range all {
			if q.IsFavorite {
				rows = append(rows, q)
			}
		}
	}
	if cmd.Limit > 0 && len(rows) > cmd.Limit {
		rows = rows[:cmd.Limit]
	}

	if len(rows) == 0 {
		fmt.Println("No quotes yet.")
		return nil
	}

	fmt.Println(renderQuoteTable(rows))
	fmt.Printf("%d quotes (%d favorites) for %s\n", len(all), favorites, session.Email)
	if note := sessionNote(session); note != "" {
		fmt.Println(note)
	}
	return nil
}

// sessionNote flags a stored session whose access token has lapsed.
func sessionNote(session *entities.AuthSession) string {
	if session.IsExpired() {
		return "⚠️  The stored session has expired; it refreshes when the daemon runs."
	}
	return ""
}

func renderQuoteTable(rows []entities.Quote) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "QUOTE", "AUTHOR", "FAV", "ADDED"})

	for i, q := range rows {
		fav := ""
		if q.IsFavorite {
			fav = "★"
		}
		tw.AppendRow(table.Row{
			i + 1,
			oneLine(q.Text, 60),
			oneLine(q.Author, 24),
			fav,
			q.Timestamp.Format("2006-01-02 15:04"),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignCenter},
	})

	return tw.Render()
}

// oneLine flattens newlines and truncates for table display.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
