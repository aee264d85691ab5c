// Package roster manages the agents an offer can be addressed to.
package roster

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/offer-form/internal/offer"
)

var (
	// ErrNotFound is returned when no agent matches.
	ErrNotFound = errors.New("agent not found")
	// ErrExists is returned when adding an agent whose name is taken.
	ErrExists = errors.New("agent already exists")
	// ErrNameRequired is returned when an agent has no name.
	ErrNameRequired = errors.New("name is required")
)

// Agent is a roster entry. Name is the stable key offers refer to.
type Agent struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile,omitempty"`
	Title     string    `json:"title,omitempty"`
	Photo     string    `json:"photo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot returns the fields copied into an offer when the agent is chosen.
func (a Agent) Snapshot() offer.Agent {
	return offer.Agent{
		Name:   a.Name,
		Email:  a.Email,
		Mobile: a.Mobile,
		Title:  a.Title,
		Photo:  a.Photo,
	}
}

// Lookup converts agents into the roster an offer selects from.
func Lookup(agents []Agent) offer.AgentList {
	out := make(offer.AgentList, len(agents))
	for i, a := range agents {
		out[i] = a.Snapshot()
	}
	return out
}

// Store manages agents in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates an agent store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectAgent = "SELECT id, name, email, mobile, title, photo, created_at FROM agents"

// Add creates a new agent.
func (s *Store) Add(a Agent) (*Agent, error) {
	a = normalize(a)
	if a.Name == "" {
		return nil, ErrNameRequired
	}

	result, err := s.db.Exec(
		"INSERT INTO agents (name, email, mobile, title, photo) VALUES (?, ?, ?, ?, ?)",
		a.Name, a.Email, a.Mobile, a.Title, a.Photo,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: %s", ErrExists, a.Name)
		}
		return nil, fmt.Errorf("adding agent: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting agent ID: %w", err)
	}

	return s.GetByID(id)
}

// Update replaces the fields of agent id.
func (s *Store) Update(id int64, a Agent) (*Agent, error) {
	a = normalize(a)
	if a.Name == "" {
		return nil, ErrNameRequired
	}

	result, err := s.db.Exec(
		"UPDATE agents SET name = ?, email = ?, mobile = ?, title = ?, photo = ? WHERE id = ?",
		a.Name, a.Email, a.Mobile, a.Title, a.Photo, id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: %s", ErrExists, a.Name)
		}
		return nil, fmt.Errorf("updating agent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return s.GetByID(id)
}

// List returns all agents ordered by name.
func (s *Store) List() ([]Agent, error) {
	rows, err := s.db.Query(selectAgent + " ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	agents := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}

	return agents, rows.Err()
}

// GetByID returns an agent by ID.
func (s *Store) GetByID(id int64) (*Agent, error) {
	a, err := scanAgent(s.db.QueryRow(selectAgent+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// GetByName returns an agent by exact name.
func (s *Store) GetByName(name string) (*Agent, error) {
	a, err := scanAgent(s.db.QueryRow(selectAgent+" WHERE name = ?", strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// LookupAgent implements offer.AgentLookup against the database.
func (s *Store) LookupAgent(name string) (offer.Agent, bool) {
	a, err := s.GetByName(name)
	if err != nil {
		return offer.Agent{}, false
	}
	return a.Snapshot(), true
}

// Delete removes an agent by ID.
func (s *Store) Delete(id int64) error {
	result, err := s.db.Exec("DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
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

// Seed inserts agents that are not already on the roster and fills in
// blank contact details of those that are. It returns how many were added.
func (s *Store) Seed(agents []Agent) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting seed: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	added := 0
	for _, a := range agents {
		a = normalize(a)
		if a.Name == "" {
			continue
		}
		result, err := tx.Exec(
			"INSERT OR IGNORE INTO agents (name, email, mobile, title, photo) VALUES (?, ?, ?, ?, ?)",
			a.Name, a.Email, a.Mobile, a.Title, a.Photo,
		)
		if err != nil {
			return 0, fmt.Errorf("seeding %s: %w", a.Name, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking affected rows: %w", err)
		}
		if n > 0 {
			added++
			continue
		}

		if _, err := tx.Exec(
			`UPDATE agents SET
				email  = CASE WHEN email  = '' THEN ? ELSE email  END,
				mobile = CASE WHEN mobile = '' THEN ? ELSE mobile END,
				title  = CASE WHEN title  = '' THEN ? ELSE title  END,
				photo  = CASE WHEN photo  = '' THEN ? ELSE photo  END
			 WHERE name = ?`,
			a.Email, a.Mobile, a.Title, a.Photo, a.Name,
		); err != nil {
			return 0, fmt.Errorf("updating %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return added, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*Agent, error) {
	var a Agent
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Mobile, &a.Title, &a.Photo, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	return &a, nil
}

func normalize(a Agent) Agent {
	a.Name = strings.TrimSpace(a.Name)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Mobile = strings.TrimSpace(a.Mobile)
	a.Title = strings.TrimSpace(a.Title)
	a.Photo = strings.TrimSpace(a.Photo)
	return a
}
