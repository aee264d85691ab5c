package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "offer.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "offer.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "offer.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "agents table exists",
			table: "agents",
			cols:  []string{"id", "name", "email", "mobile", "title", "photo", "created_at"},
		},
		{
			name:  "logos table exists",
			table: "logos",
			cols:  []string{"id", "name", "url", "uploaded_at"},
		},
		{
			name:  "settings table exists",
			table: "settings",
			cols:  []string{"id", "logo_url", "placeholders_json", "updated_at"},
		},
		{
			name:  "shortlinks table exists",
			table: "shortlinks",
			cols:  []string{"id", "agent", "address", "created_at"},
		},
		{
			name:  "drafts table exists",
			table: "drafts",
			cols:  []string{"id", "record_json", "saved_at"},
		},
		{
			name:  "submissions table exists",
			table: "submissions",
			cols:  []string{"id", "form_id", "shortlink_id", "agent", "address", "outcome", "error", "pdf_filename", "submitted_at"},
		},
		{
			name:  "sessions table exists",
			table: "sessions",
			cols:  []string{"id", "method", "credential_id", "gate", "expires_at", "created_at"},
		},
		{
			name:  "passkey_credentials table exists",
			table: "passkey_credentials",
			cols:  []string{"id", "name", "gate", "credential_json", "last_used_at", "created_at"},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestSettingsSingleton(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(`INSERT INTO settings (id) VALUES (1)`); err != nil {
		t.Fatalf("insert singleton: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO settings (id) VALUES (2)`); err == nil {
		t.Error("expected error inserting a second settings row, got nil")
	}
}

func TestOutcomeConstraint(t *testing.T) {
	d := openTestDB(t)

	tests := []struct {
		outcome string
		wantErr bool
	}{
		{"blocked", false},
		{"success", false},
		{"error", false},
		{"pending", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			_, err := d.Exec(`INSERT INTO submissions (form_id, outcome) VALUES (?, ?)`, "f1", tt.outcome)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestShortlinkDeleteKeepsSubmissions(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(`INSERT INTO shortlinks (id, agent, address) VALUES (?, ?, ?)`, "ab12c", "Ben Fields", "1 Main St"); err != nil {
		t.Fatalf("insert shortlink: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err := d.Exec(
			`INSERT INTO submissions (form_id, shortlink_id, outcome) VALUES (?, ?, 'success')`,
			fmt.Sprintf("form-%d", i), "ab12c",
		)
		if err != nil {
			t.Fatalf("insert submission %d: %v", i, err)
		}
	}

	if _, err := d.Exec(`DELETE FROM shortlinks WHERE id = ?`, "ab12c"); err != nil {
		t.Fatalf("delete shortlink: %v", err)
	}

	var total, linked int
	if err := d.QueryRow(`SELECT COUNT(*), COUNT(shortlink_id) FROM submissions`).Scan(&total, &linked); err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 submissions, got %d", total)
	}
	if linked != 0 {
		t.Errorf("expected shortlink_id cleared, got %d linked rows", linked)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offer.db")

	// Open twice; migrations should not fail on second run
	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (idempotency): %v", err)
	}
	if err := d2.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	d := openTestDB(t)

	v, err := Version(d)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("version = %d, want %d", v, SchemaVersion)
	}
}

func TestMigrateFromPartialSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offer.db")

	// A file that only ever ran the first step.
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if err := apply(raw, 1, steps[0]); err != nil {
		t.Fatalf("apply first step: %v", err)
	}
	if _, err := raw.Exec(`INSERT INTO agents (name) VALUES ('Ben Fields')`); err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close raw: %v", err)
	}

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	if cols := tableColumns(t, d, "sessions"); len(cols) == 0 {
		t.Error("sessions table missing after upgrade")
	}
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		t.Fatalf("count agents: %v", err)
	}
	if n != 1 {
		t.Errorf("agents = %d, want 1", n)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offer.db")

	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := raw.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion+1)); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close raw: %v", err)
	}

	_, err = Open(path)
	if !errors.Is(err, ErrNewerSchema) {
		t.Errorf("Open error = %v, want ErrNewerSchema", err)
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "offer.db" {
		t.Errorf("expected filename offer.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != ".offer" {
		t.Errorf("expected directory .offer, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offer.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
