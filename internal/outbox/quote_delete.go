package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mikestefanello/backlite"
)

// QuoteDeleteTask removes the remote row of a locally deleted quote and
// clears its tombstone once the remote delete is confirmed.
type QuoteDeleteTask struct {
	QuoteID string `json:"quote_id"`
	UserID  string `json:"user_id"`
}

// Config returns the queue configuration for quote delete tasks.
func (t QuoteDeleteTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "quote_delete",
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

// QuoteDeleteProcessor creates a processor function for QuoteDeleteTask.
// The launch sweep enqueues one task per live tombstone, so a task may
// arrive after another already confirmed the delete; those are dropped.
func QuoteDeleteProcessor(deps Deps) backlite.QueueProcessor[QuoteDeleteTask] {
	return func(ctx context.Context, task QuoteDeleteTask) error {
		has, err := deps.Repo.HasTombstone(task.QuoteID)
		if err != nil {
			return deps.fail("delete", task.QuoteID, fmt.Errorf("check tombstone: %w", err))
		}
		if !has {
			log.Printf("[OUTBOX] Delete of quote %s already confirmed", task.QuoteID)
			return nil
		}

		session := deps.Sessions.Session()
		if session == nil {
			return deps.fail("delete", task.QuoteID, errors.New("not signed in"))
		}

		if session.User.ID != task.UserID {
			// A different account is active. Keep the tombstone so the
			// owner's next sign-in requeues this delete.
			log.Printf("[OUTBOX] Delete deferred, quote %s belongs to another account", task.QuoteID)
			return nil
		}

		if err := deps.Remote.DeleteQuote(ctx, session, task.QuoteID); err != nil {
			return deps.fail("delete", task.QuoteID, fmt.Errorf("remote delete: %w", err))
		}

		if err := deps.Repo.DeleteTombstone(task.QuoteID); err != nil {
			return deps.fail("delete", task.QuoteID, fmt.Errorf("clear tombstone: %w", err))
		}

		log.Printf("[OUTBOX] Deleted quote %s remotely", task.QuoteID)
		return nil
	}
}

// NewQuoteDeleteQueue creates a backlite queue for quote delete tasks.
func NewQuoteDeleteQueue(deps Deps) backlite.Queue {
	return backlite.NewQueue(QuoteDeleteProcessor(deps))
}
