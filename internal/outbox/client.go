// Package outbox mirrors local journal mutations to the remote store via
// a persistent task queue. Mutations stay optimistic and local-first; the
// queue retries failed remote calls with backoff and surfaces the last
// failure through the settings store instead of dropping it.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client wraps backlite to provide the remote mirror queue.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.RWMutex
	started bool
}

// NewClient creates a queue client with a dedicated SQLite database stored
// alongside the main database with an "-outbox" suffix.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	applyTuning(cfg)

	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	outboxDBPath := filepath.Join(dir, name+"-outbox"+ext)

	db, err := sql.Open("sqlite3", outboxDBPath+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &stdLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create outbox client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install outbox schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
	}, nil
}

// Register registers queues with the client. Must be called before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// RegisterQuoteQueues registers the three quote mirror queues.
func (c *Client) RegisterQuoteQueues(deps Deps) {
	c.Register(
		NewQuotePushQueue(deps),
		NewQuoteDeleteQueue(deps),
		NewQuotePromoteQueue(deps),
	)
}

// Start begins processing tasks. Non-blocking; call Stop for graceful
// shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	log.Printf("Outbox started with %d workers", c.config.Workers)
	c.client.Start(ctx)
}

// Stop gracefully shuts down the queue, waiting for active tasks.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	log.Println("Stopping outbox...")
	success := c.client.Stop(ctx)
	if success {
		log.Println("Outbox stopped gracefully")
	} else {
		log.Println("Outbox stopped with timeout (some tasks may not have completed)")
	}
	return success
}

// Close releases all resources. Should be called after Stop.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// EnqueuePush queues a remote push of the quote's current local state.
func (c *Client) EnqueuePush(ctx context.Context, quoteID string) error {
	_, err := c.Add(QuotePushTask{QuoteID: quoteID}).Save()
	return err
}

// EnqueueDelete queues the remote delete for a locally deleted quote.
func (c *Client) EnqueueDelete(ctx context.Context, quoteID, userID string) error {
	_, err := c.Add(QuoteDeleteTask{QuoteID: quoteID, UserID: userID}).Save()
	return err
}

// EnqueuePromote queues the remote timestamp update after a promotion.
func (c *Client) EnqueuePromote(ctx context.Context, quoteID string, ts time.Time) error {
	_, err := c.Add(QuotePromoteTask{QuoteID: quoteID, Timestamp: ts}).Save()
	return err
}

// DB returns the underlying database connection for use with backlite UI.
func (c *Client) DB() *sql.DB {
	return c.db
}

// stdLogger implements backlite.Logger using standard library log.
type stdLogger struct{}

func (l *stdLogger) Info(message string, params ...any) {
	log.Printf("[OUTBOX] "+message, params...)
}

func (l *stdLogger) Error(message string, params ...any) {
	log.Printf("[OUTBOX ERROR] "+message, params...)
}
