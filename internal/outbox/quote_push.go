package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
	"gorm.io/gorm"
)

// QuotePushTask mirrors the current local state of one quote to the
// remote store.
type QuotePushTask struct {
	QuoteID string `json:"quote_id"`
}

// Config returns the queue configuration for quote push tasks.
func (t QuotePushTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "quote_push",
		MaxAttempts: tuning.MaxAttempts,
		Backoff:     tuning.Backoff,
		Timeout:     tuning.Timeout,
		Retention: &backlite.Retention{
			Duration:   tuning.Retention,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// QuotePushProcessor creates a processor function for QuotePushTask.
// The processor reads the record at execution time, so a task enqueued
// against stale state still pushes what the journal holds now.
func QuotePushProcessor(deps Deps) backlite.QueueProcessor[QuotePushTask] {
	return func(ctx context.Context, task QuotePushTask) error {
		session := deps.Sessions.Session()
		if session == nil {
			return deps.fail("push", task.QuoteID, errors.New("not signed in"))
		}

		quote, err := deps.Repo.GetByID(task.QuoteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deleted before the push ran; the delete task owns the
			// remote row now.
			log.Printf("[OUTBOX] Push skipped, quote %s is gone", task.QuoteID)
			return nil
		}
		if err != nil {
			return deps.fail("push", task.QuoteID, fmt.Errorf("load quote: %w", err))
		}

		if _, err := deps.Remote.UpsertQuote(ctx, session, rowFromQuote(quote)); err != nil {
			return deps.fail("push", task.QuoteID, fmt.Errorf("remote upsert: %w", err))
		}

		if err := deps.Repo.MarkSynced(quote.ID, time.Now()); err != nil {
			return deps.fail("push", task.QuoteID, fmt.Errorf("mark synced: %w", err))
		}

		log.Printf("[OUTBOX] Pushed quote %s", task.QuoteID)
		return nil
	}
}

// NewQuotePushQueue creates a backlite queue for quote push tasks.
func NewQuotePushQueue(deps Deps) backlite.Queue {
	return backlite.NewQueue(QuotePushProcessor(deps))
}
