package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the local quote store
	DefaultDatabasePath = "./quotevault.db"

	// DefaultWidgetDir is where widget snapshot files are written
	DefaultWidgetDir = "./widget"
)
