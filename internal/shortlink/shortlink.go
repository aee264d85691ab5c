// Package shortlink issues the short ids printed on offer QR codes. Each id
// maps to the agent and property address the form is prefilled with.
package shortlink

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"
)

// IDLength is the number of base-36 characters in an id.
const IDLength = 5

const (
	alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxAttempts = 5
)

// ErrNotFound is returned when an id is unknown.
var ErrNotFound = errors.New("link not found")

// Link is a stored short link.
type Link struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store manages short links in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a short link store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create stores a new link for agent and address under a fresh id.
func (s *Store) Create(agent, address string) (*Link, error) {
	agent = strings.TrimSpace(agent)
	address = strings.TrimSpace(address)
	if agent == "" || address == "" {
		return nil, fmt.Errorf("agent and address are required")
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id, err := NewID()
		if err != nil {
			return nil, fmt.Errorf("generating id: %w", err)
		}

		_, err = s.db.Exec(
			"INSERT INTO shortlinks (id, agent, address, created_at) VALUES (?, ?, ?, ?)",
			id, agent, address, now,
		)
		if err == nil {
			return &Link{ID: id, Agent: agent, Address: address, CreatedAt: now}, nil
		}
		if !strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("storing link: %w", err)
		}
	}

	return nil, fmt.Errorf("no free id after %d attempts", maxAttempts)
}

// Resolve returns the link for id.
func (s *Store) Resolve(id string) (*Link, error) {
	var l Link
	err := s.db.QueryRow(
		"SELECT id, agent, address, created_at FROM shortlinks WHERE id = ?",
		strings.ToLower(strings.TrimSpace(id)),
	).Scan(&l.ID, &l.Agent, &l.Address, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying link: %w", err)
	}
	return &l, nil
}

// List returns the most recent links first, at most limit of them.
func (s *Store) List(limit int) ([]Link, error) {
	rows, err := s.db.Query(
		"SELECT id, agent, address, created_at FROM shortlinks ORDER BY created_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	links := []Link{}
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.Agent, &l.Address, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// NewID returns a random base-36 id of IDLength characters.
func NewID() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, IDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// URL returns the form address for a stored link.
func URL(base, id string) string {
	return strings.TrimRight(base, "/") + "/?id=" + url.QueryEscape(id)
}

// DirectURL returns a form address that carries agent and address inline.
// It is used when a link cannot be stored.
func DirectURL(base, agent, address string) string {
	q := url.Values{}
	q.Set("a", agent)
	q.Set("p", address)
	return strings.TrimRight(base, "/") + "/?" + q.Encode()
}

// Params are the prefill values carried by a form URL.
type Params struct {
	ID      string
	Agent   string
	Address string
}

// ParseParams reads prefill values from a query string. The long names
// agent and address take precedence over a and p.
func ParseParams(q url.Values) Params {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(q.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return Params{
		ID:      first("id"),
		Agent:   first("agent", "a"),
		Address: first("address", "p"),
	}
}

// Empty reports whether the URL carried no prefill values.
func (p Params) Empty() bool {
	return p.ID == "" && p.Agent == "" && p.Address == ""
}
