// Package settings stores the singleton form settings (logo and placeholder
// defaults) and the uploaded logo library.
package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/offer-form/internal/offer"
)

var (
	// ErrNotFound is returned when a logo does not exist.
	ErrNotFound = errors.New("logo not found")
	// ErrURLRequired is returned when a logo has no URL.
	ErrURLRequired = errors.New("url is required")
	// ErrUnknownPlaceholder is returned when a patch clears a key that is
	// not a placeholder.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
)

// Settings is the admin-managed configuration read by every form.
type Settings struct {
	LogoURL      string         `json:"logoUrl"`
	Placeholders offer.Defaults `json:"placeholders"`
	UpdatedAt    *time.Time     `json:"updatedAt,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged, as are blank
// placeholder values. Clear names placeholder keys (their JSON names) whose
// default is removed, leaving the field with no fallback text.
type Patch struct {
	LogoURL      *string         `json:"logoUrl,omitempty"`
	Placeholders *offer.Defaults `json:"placeholders,omitempty"`
	Clear        []string        `json:"clear,omitempty"`
}

// Logo is an uploaded logo image.
type Logo struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store manages settings and logos in SQLite.
type Store struct {
	db          *sql.DB
	defaultLogo string
}

// NewStore creates a settings store. defaultLogo is reported until an
// admin saves a logo.
func NewStore(db *sql.DB, defaultLogo string) *Store {
	return &Store{db: db, defaultLogo: defaultLogo}
}

// Get returns the current settings. Saved placeholders are overlaid on the
// built-in ones so a field never saved keeps its stock text, and a cleared
// field stays blank.
func (s *Store) Get() (Settings, error) {
	out := Settings{
		LogoURL:      s.defaultLogo,
		Placeholders: offer.DefaultPlaceholders(),
	}

	var logoURL, data string
	var updatedAt time.Time
	err := s.db.QueryRow(
		"SELECT logo_url, placeholders_json, updated_at FROM settings WHERE id = 1",
	).Scan(&logoURL, &data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("querying settings: %w", err)
	}

	// Only keys present in the stored document replace the stock text.
	if err := json.Unmarshal([]byte(data), &out.Placeholders); err != nil {
		return Settings{}, fmt.Errorf("decoding placeholders: %w", err)
	}

	if logoURL != "" {
		out.LogoURL = logoURL
	}
	out.UpdatedAt = &updatedAt
	return out, nil
}

// Save merges p into the stored settings and returns the result.
func (s *Store) Save(p Patch) (Settings, error) {
	var logoURL, data string
	err := s.db.QueryRow(
		"SELECT logo_url, placeholders_json FROM settings WHERE id = 1",
	).Scan(&logoURL, &data)
	if errors.Is(err, sql.ErrNoRows) {
		data = "{}"
	} else if err != nil {
		return Settings{}, fmt.Errorf("querying settings: %w", err)
	}

	if p.LogoURL != nil {
		logoURL = strings.TrimSpace(*p.LogoURL)
	}
	if p.Placeholders != nil || len(p.Clear) > 0 {
		data, err = mergePlaceholders(data, p)
		if err != nil {
			return Settings{}, err
		}
	}

	if _, err := s.db.Exec(
		`INSERT INTO settings (id, logo_url, placeholders_json, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET logo_url = excluded.logo_url,
			placeholders_json = excluded.placeholders_json, updated_at = excluded.updated_at`,
		logoURL, data, time.Now().UTC(),
	); err != nil {
		return Settings{}, fmt.Errorf("saving settings: %w", err)
	}

	return s.Get()
}

// mergePlaceholders applies p to the stored placeholder document. The
// document holds only keys an admin has set or cleared.
func mergePlaceholders(data string, p Patch) (string, error) {
	stored := map[string]string{}
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return "", fmt.Errorf("decoding placeholders: %w", err)
	}

	known, err := placeholderMap(offer.Defaults{})
	if err != nil {
		return "", err
	}

	if p.Placeholders != nil {
		values, err := placeholderMap(*p.Placeholders)
		if err != nil {
			return "", err
		}
		for k, v := range values {
			if strings.TrimSpace(v) != "" {
				stored[k] = v
			}
		}
	}
	for _, k := range p.Clear {
		if _, ok := known[k]; !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownPlaceholder, k)
		}
		stored[k] = ""
	}

	encoded, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encoding placeholders: %w", err)
	}
	return string(encoded), nil
}

func placeholderMap(d offer.Defaults) (map[string]string, error) {
	encoded, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding placeholders: %w", err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(encoded, &m); err != nil {
		return nil, fmt.Errorf("decoding placeholders: %w", err)
	}
	return m, nil
}

// AddLogo records an uploaded logo.
func (s *Store) AddLogo(name, url string) (*Logo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrURLRequired
	}

	result, err := s.db.Exec(
		"INSERT INTO logos (name, url, uploaded_at) VALUES (?, ?, ?)",
		strings.TrimSpace(name), url, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("adding logo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting logo ID: %w", err)
	}

	var l Logo
	err = s.db.QueryRow(
		"SELECT id, name, url, uploaded_at FROM logos WHERE id = ?", id,
	).Scan(&l.ID, &l.Name, &l.URL, &l.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("querying logo: %w", err)
	}
	return &l, nil
}

// ListLogos returns logos, most recently uploaded first.
func (s *Store) ListLogos() ([]Logo, error) {
	rows, err := s.db.Query(
		"SELECT id, name, url, uploaded_at FROM logos ORDER BY uploaded_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing logos: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	logos := []Logo{}
	for rows.Next() {
		var l Logo
		if err := rows.Scan(&l.ID, &l.Name, &l.URL, &l.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning logo: %w", err)
		}
		logos = append(logos, l)
	}

	return logos, rows.Err()
}

// DeleteLogo removes a logo by ID.
func (s *Store) DeleteLogo(id int64) error {
	result, err := s.db.Exec("DELETE FROM logos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting logo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
