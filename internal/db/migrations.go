package db

import (
	"database/sql"
	"fmt"
)

// step is one schema revision. Step i moves user_version from i to i+1.
type step struct {
	name  string
	stmts []string
}

var steps = []step{
	{
		name: "form data",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS agents (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT    NOT NULL UNIQUE,
				email      TEXT    NOT NULL DEFAULT '',
				mobile     TEXT    NOT NULL DEFAULT '',
				title      TEXT    NOT NULL DEFAULT '',
				photo      TEXT    NOT NULL DEFAULT '',
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS logos (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT    NOT NULL DEFAULT '',
				url         TEXT    NOT NULL,
				uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				id                INTEGER PRIMARY KEY CHECK (id = 1),
				logo_url          TEXT    NOT NULL DEFAULT '',
				placeholders_json TEXT    NOT NULL DEFAULT '{}',
				updated_at        DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS shortlinks (
				id         TEXT    PRIMARY KEY,
				agent      TEXT    NOT NULL,
				address    TEXT    NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS drafts (
				id          TEXT    PRIMARY KEY,
				record_json TEXT    NOT NULL,
				saved_at    DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS submissions (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				form_id      TEXT    NOT NULL,
				shortlink_id TEXT    REFERENCES shortlinks(id) ON DELETE SET NULL,
				agent        TEXT    NOT NULL DEFAULT '',
				address      TEXT    NOT NULL DEFAULT '',
				outcome      TEXT    NOT NULL CHECK (outcome IN ('blocked', 'success', 'error')),
				error        TEXT    NOT NULL DEFAULT '',
				pdf_filename TEXT    NOT NULL DEFAULT '',
				submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_id)`,
		},
	},
	{
		name: "admin access",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS passkey_credentials (
				id              TEXT     PRIMARY KEY,
				name            TEXT     NOT NULL DEFAULT '',
				gate            TEXT     NOT NULL,
				credential_json TEXT     NOT NULL,
				last_used_at    DATETIME,
				created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id            TEXT     PRIMARY KEY,
				method        TEXT     NOT NULL CHECK (method IN ('passphrase', 'passkey')),
				credential_id TEXT     REFERENCES passkey_credentials(id) ON DELETE CASCADE,
				gate          TEXT     NOT NULL,
				expires_at    DATETIME NOT NULL,
				created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS api_keys (
				id           INTEGER  PRIMARY KEY AUTOINCREMENT,
				name         TEXT     NOT NULL,
				key_prefix   TEXT     NOT NULL,
				key_hash     TEXT     NOT NULL UNIQUE,
				created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_used_at DATETIME
			)`,
		},
	},
}

// SchemaVersion is the version a freshly migrated database reports.
var SchemaVersion = len(steps)

// migrate applies every step past the recorded user_version, each in its own
// transaction so a failed step leaves the version where it was.
func migrate(db *sql.DB) error {
	current, err := Version(db)
	if err != nil {
		return err
	}
	if current > len(steps) {
		return fmt.Errorf("%w: file is at %d, binary knows %d", ErrNewerSchema, current, len(steps))
	}

	for v := current; v < len(steps); v++ {
		if err := apply(db, v+1, steps[v]); err != nil {
			return fmt.Errorf("step %d (%s): %w", v+1, steps[v].name, err)
		}
	}
	return nil
}

func apply(db *sql.DB, version int, st step) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			fmt.Printf("warning: rolling back migration: %v\n", rerr)
		}
	}()

	for _, stmt := range st.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}
