package outbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"quotevault/internal/database/quotes"
	"quotevault/internal/entities"
	"quotevault/internal/supabase"
)

// RemoteStore is the slice of the backend client the queue processors
// need.
type RemoteStore interface {
	UpsertQuote(ctx context.Context, session *supabase.Session, row supabase.QuoteRow) (*supabase.QuoteRow, error)
	DeleteQuote(ctx context.Context, session *supabase.Session, quoteID string) error
	UpdateQuoteTimestamp(ctx context.Context, session *supabase.Session, quoteID string, ts time.Time) (bool, error)
}

// SessionSource yields the active session, nil when signed out.
type SessionSource interface {
	Session() *supabase.Session
}

// StatusSink records the last remote mirror failure for the status
// endpoint and the CLI.
type StatusSink interface {
	SetOutboxError(message string) error
}

// Deps carries what the quote queue processors need.
type Deps struct {
	Repo     *quotes.Repository
	Remote   RemoteStore
	Sessions SessionSource
	Status   StatusSink
}

// fail surfaces a processor error through the status sink and returns it
// so the queue retries.
func (d Deps) fail(op, quoteID string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", op, quoteID, err)
	if d.Status != nil {
		if statusErr := d.Status.SetOutboxError(wrapped.Error()); statusErr != nil {
			log.Printf("[OUTBOX ERROR] Failed to record failure: %v", statusErr)
		}
	}
	return wrapped
}

func rowFromQuote(quote *entities.Quote) supabase.QuoteRow {
	return supabase.QuoteRow{
		ID:         quote.ID,
		UserID:     quote.UserID,
		Text:       quote.Text,
		Author:     quote.Author,
		Categories: quote.Categories,
		IsFavorite: quote.IsFavorite,
		Timestamp:  quote.Timestamp,
	}
}
