// Package database provides the local quote store.
//
// # Architecture
//
// The store is a single SQLite file shared by every process on the machine:
//
//	database/
//	├── database.go      # Open modes, migrations, settings
//	└── quotes/          # Quote, favorite and tombstone operations
//
// The daemon opens the store read-write through NewDatabase and owns all
// writes. Widget and CLI processes open it through OpenReadOnly and only
// ever read; they render an empty state when the store is missing instead
// of creating one.
//
// # Using the quotes repository
//
//	db, err := database.NewDatabase("~/.quotevault/store.db")
//	repo := quotes.NewRepository(db.DB)
//
//	list, total, err := repo.ListForUser(userID, 20, 0)
//	current, err := repo.Current(userID)
//
// # Settings
//
// Key/value settings live on the Database struct itself (GetSetting,
// SetSetting, DeleteSetting). The sync service records its status there so
// the CLI can report it without talking to the daemon.
package database
