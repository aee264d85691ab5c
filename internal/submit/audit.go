package submit

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded submission attempt.
type Entry struct {
	ID          int64     `json:"id"`
	FormID      string    `json:"formId"`
	ShortlinkID string    `json:"shortlinkId,omitempty"`
	Agent       string    `json:"agent"`
	Address     string    `json:"address"`
	Outcome     Outcome   `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	PDFFilename string    `json:"pdfFilename,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// AuditLog records submission attempts in SQLite.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog creates an audit log.
func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record stores e and sets its ID.
func (l *AuditLog) Record(e *Entry) error {
	var shortlink sql.NullString
	if e.ShortlinkID != "" {
		shortlink = sql.NullString{String: e.ShortlinkID, Valid: true}
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = time.Now().UTC()
	}

	result, err := l.db.Exec(
		`INSERT INTO submissions (form_id, shortlink_id, agent, address, outcome, error, pdf_filename, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FormID, shortlink, e.Agent, e.Address, string(e.Outcome), e.Error, e.PDFFilename, e.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting submission id: %w", err)
	}
	e.ID = id
	return nil
}

// List returns the most recent attempts first, optionally for one form.
func (l *AuditLog) List(formID string, limit int) ([]Entry, error) {
	query := `SELECT id, form_id, shortlink_id, agent, address, outcome, error, pdf_filename, submitted_at
		FROM submissions`
	var args []any
	if formID != "" {
		query += " WHERE form_id = ?"
		args = append(args, formID)
	}
	query += " ORDER BY submitted_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var shortlink sql.NullString
		var outcome string
		if err := rows.Scan(&e.ID, &e.FormID, &shortlink, &e.Agent, &e.Address, &outcome,
			&e.Error, &e.PDFFilename, &e.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		e.ShortlinkID = shortlink.String
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of attempts per outcome.
func (l *AuditLog) Counts() (map[Outcome]int, error) {
	rows, err := l.db.Query("SELECT outcome, COUNT(*) FROM submissions GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("counting submissions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	counts := map[Outcome]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
