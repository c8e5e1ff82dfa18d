// Package widget renders the snapshot a separate widget process
// displays. The daemon re-renders after every journal mutation and on a
// cron cadence; the widget process renders once from a read-only store
// handle and exits. Rendering needs no network, so the widget keeps
// working offline from whatever the store holds.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"quotevault/internal/entities"
)

const (
	// SnapshotFileName is the JSON snapshot consumed programmatically.
	SnapshotFileName = "snapshot.json"

	// CardFileName is the plain-text card shown verbatim.
	CardFileName = "card.txt"
)

// Snapshot is the rendered widget payload. An empty ID means the store
// held no records at render time.
type Snapshot struct {
	ID          string     `json:"id,omitempty"`
	Text        string     `json:"text"`
	Author      string     `json:"author,omitempty"`
	Favorite    bool       `json:"favorite"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// QuoteSource supplies the record the widget shows. An empty user id
// means "whoever the store holds records for".
type QuoteSource interface {
	Current(userID string) (*entities.Quote, error)
}

// SessionChecker reports whether a backend session is persisted.
type SessionChecker interface {
	SignedIn() (bool, error)
}

// SessionCheckerFunc adapts a function to the SessionChecker interface.
type SessionCheckerFunc func() (bool, error)

func (f SessionCheckerFunc) SignedIn() (bool, error) { return f() }

// StatusSink records render bookkeeping. Nil in the widget process,
// which must not write to the store.
type StatusSink interface {
	SetWidgetLastRenderedAt(at time.Time) error
}

// Renderer writes the snapshot files.
type Renderer struct {
	quotes   QuoteSource
	sessions SessionChecker
	status   StatusSink
	dir      string
}

// NewRenderer creates a renderer writing into dir. status may be nil.
func NewRenderer(quotes QuoteSource, sessions SessionChecker, status StatusSink, dir string) *Renderer {
	return &Renderer{
		quotes:   quotes,
		sessions: sessions,
		status:   status,
		dir:      dir,
	}
}

// Dir returns the snapshot directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Render reads the current record and writes the snapshot JSON and the
// text card. Both files are written via temp file and rename, so a
// concurrent reader never observes a half-written file.
func (r *Renderer) Render() (*Snapshot, error) {
	signedIn, err := r.sessions.SignedIn()
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}

	snapshot := &Snapshot{GeneratedAt: time.Now().UTC()}

	quote, err := r.quotes.Current("")
	switch {
	case err == nil:
		snapshot.ID = quote.ID
		snapshot.Text = quote.Text
		snapshot.Author = quote.Author
		snapshot.Favorite = quote.IsFavorite
		ts := quote.Timestamp
		snapshot.Timestamp = &ts
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Empty store still renders, as a placeholder card.
	default:
		return nil, fmt.Errorf("load current quote: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("create widget dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeAtomic(r.dir, SnapshotFileName, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := writeAtomic(r.dir, CardFileName, []byte(cardText(snapshot, signedIn))); err != nil {
		return nil, fmt.Errorf("write card: %w", err)
	}

	if r.status != nil {
		if err := r.status.SetWidgetLastRenderedAt(snapshot.GeneratedAt); err != nil {
			log.Printf("Widget: failed to record render time: %v", err)
		}
	}
	return snapshot, nil
}

// RequestRefresh re-renders the snapshot and only logs failures, so
// journal writes never fail on widget IO.
func (r *Renderer) RequestRefresh() {
	if _, err := r.Render(); err != nil {
		log.Printf("Widget: refresh failed: %v", err)
	}
}

// Snapshot returns the last rendered snapshot, rendering one first when
// none exists yet.
func (r *Renderer) Snapshot() (*Snapshot, error) {
	snapshot, err := LoadSnapshot(r.dir)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return r.Render()
}

// LoadSnapshot reads a previously rendered snapshot from dir.
func LoadSnapshot(dir string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, SnapshotFileName))
	if err != nil {
		return nil, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

func cardText(s *Snapshot, signedIn bool) string {
	if !signedIn {
		return "Signed out\nSign in to see your quotes.\n"
	}
	if s.ID == "" {
		return "No quotes yet\nAdd a quote and it will show up here.\n"
	}

	var b strings.Builder
	b.WriteString("“")
	b.WriteString(s.Text)
	b.WriteString("”\n")
	if s.Author != "" {
		b.WriteString("— ")
		b.WriteString(s.Author)
		b.WriteString("\n")
	}
	return b.String()
}

// writeAtomic writes data to dir/name via a temp file in the same
// directory and a rename.
func writeAtomic(dir, name string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, name+".tmp-")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, filepath.Join(dir, name))
}
