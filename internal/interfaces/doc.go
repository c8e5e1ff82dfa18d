// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// The application uses several categories of interfaces:
//
// ## HTTP Layer Interfaces
//
//   - QuoteService: journal mutations behind the quote endpoints (internal/http/quotes.go)
//   - QuoteStore: read side of the journal (internal/http/quotes.go)
//   - FavoriteService: saving and removing favorites (internal/http/favorites.go)
//   - SyncTrigger: scheduler surface for the sync endpoints (internal/http/sync.go)
//   - SnapshotSource: rendered widget snapshot (internal/http/widget.go)
//   - RenderScheduler: scheduler surface for the widget schedule endpoints (internal/http/widget.go)
//
// ## Sync Service Interfaces
//
//   - RemoteClient: remote collection fetch (internal/sync/service.go)
//   - SessionSource: active backend session (internal/sync/service.go)
//   - Enqueuer: remote mirror work queued on the outbox (internal/sync/service.go)
//   - Refresher: widget re-render requests (internal/sync/service.go)
//
// ## Outbox Processor Interfaces
//
//   - RemoteStore: backend writes the queue processors perform (internal/outbox/deps.go)
//   - StatusSink: last mirror failure, surfaced by the status endpoint (internal/outbox/deps.go)
//
// ## Widget Interfaces
//
//   - QuoteSource: the record the widget shows (internal/widget/renderer.go)
//   - SessionChecker: whether a backend session is persisted (internal/widget/renderer.go)
//
// # Adding a New Remote Backend
//
// The sync service and the outbox processors only see narrow slices of the
// backend client. To target a different backend:
//
//  1. Implement the client in its own package
//
//     type Client struct {
//         baseURL    string
//         httpClient *http.Client
//     }
//
//     func (c *Client) ListQuotes(ctx context.Context, session *supabase.Session) ([]supabase.QuoteRow, error)
//     func (c *Client) UpsertQuote(ctx context.Context, session *supabase.Session, row supabase.QuoteRow) (*supabase.QuoteRow, error)
//     func (c *Client) DeleteQuote(ctx context.Context, session *supabase.Session, quoteID string) error
//
//  2. Add compile-time checks
//
//     var _ sync.RemoteClient = (*Client)(nil)
//     var _ outbox.RemoteStore = (*Client)(nil)
//
//  3. Wire it in entrypoint.Run
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
