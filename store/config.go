package store

import "log/slog"

// Config holds configuration shared by every backend.
type Config struct {
	// FileName is the JSON file used by Local. A ".json" extension is
	// appended when missing; relative names resolve against the working directory.
	// Default: "arkdb.json"
	FileName string

	// Slot is the persistent storage slot used by Browser.
	// Default: "arkdb"
	Slot string

	// Collection is the DynamoDB table used by Conn.Collection("").
	// Default: "arkdb"
	Collection string

	// Pretty indents flushed JSON by two spaces. Per-call Pretty overrides it.
	Pretty bool

	// StrictPull makes Pull fail with ErrNoSuchElement when the element is absent.
	StrictPull bool

	// Logger receives debug output. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns the defaults used by the original file layout.
func DefaultConfig() Config {
	return Config{
		FileName:   "arkdb.json",
		Slot:       "arkdb",
		Collection: "arkdb",
	}
}

// validate fills unset values with defaults.
func (c *Config) validate() {
	if c.FileName == "" {
		c.FileName = "arkdb.json"
	}
	if c.Slot == "" {
		c.Slot = "arkdb"
	}
	if c.Collection == "" {
		c.Collection = "arkdb"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
