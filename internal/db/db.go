// Package db opens the offer form's SQLite store and keeps its schema current.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNewerSchema is returned when the file was written by a later release.
var ErrNewerSchema = errors.New("database schema is newer than this binary")

// DefaultPath returns the default database path: ~/.offer/offer.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".offer", "offer.db"), nil
}

// Open opens (or creates) the database at path and brings its schema up to
// SchemaVersion. Foreign keys and the busy timeout are set per connection.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, closeAfter(db, fmt.Errorf("enabling WAL: %w", err))
	}
	if err := migrate(db); err != nil {
		return nil, closeAfter(db, fmt.Errorf("running migrations: %w", err))
	}
	return db, nil
}

// Version reports the schema version recorded in the open database.
func Version(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func closeAfter(db *sql.DB, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		return fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
	}
	return err
}
