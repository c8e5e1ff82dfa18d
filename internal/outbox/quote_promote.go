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

// QuotePromoteTask mirrors a promotion by rewriting the remote row's
// timestamp. Timestamp records when the promotion happened; the processor
// pushes the record's timestamp at execution time so concurrent
// promotions of the same quote converge on the latest one.
type QuotePromoteTask struct {
	QuoteID   string    `json:"quote_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Config returns the queue configuration for quote promote tasks.
func (t QuotePromoteTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "quote_promote",
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

// QuotePromoteProcessor creates a processor function for QuotePromoteTask.
// A remote row that never received its initial push matches nothing on
// PATCH; the processor falls back to a full upsert in that case.
func QuotePromoteProcessor(deps Deps) backlite.QueueProcessor[QuotePromoteTask] {
	return func(ctx context.Context, task QuotePromoteTask) error {
		session := deps.Sessions.Session()
		if session == nil {
			return deps.fail("promote", task.QuoteID, errors.New("not signed in"))
		}

		quote, err := deps.Repo.GetByID(task.QuoteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[OUTBOX] Promote skipped, quote %s is gone", task.QuoteID)
			return nil
		}
		if err != nil {
			return deps.fail("promote", task.QuoteID, fmt.Errorf("load quote: %w", err))
		}

		matched, err := deps.Remote.UpdateQuoteTimestamp(ctx, session, quote.ID, quote.Timestamp)
		if err != nil {
			return deps.fail("promote", task.QuoteID, fmt.Errorf("remote timestamp update: %w", err))
		}
		if !matched {
			if _, err := deps.Remote.UpsertQuote(ctx, session, rowFromQuote(quote)); err != nil {
				return deps.fail("promote", task.QuoteID, fmt.Errorf("remote upsert: %w", err))
			}
		}

		if err := deps.Repo.MarkSynced(quote.ID, time.Now()); err != nil {
			return deps.fail("promote", task.QuoteID, fmt.Errorf("mark synced: %w", err))
		}

		log.Printf("[OUTBOX] Promoted quote %s remotely", task.QuoteID)
		return nil
	}
}

// NewQuotePromoteQueue creates a backlite queue for quote promote tasks.
func NewQuotePromoteQueue(deps Deps) backlite.Queue {
	return backlite.NewQueue(QuotePromoteProcessor(deps))
}
