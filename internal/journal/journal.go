package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openmined/snipsync/internal/db"
	"github.com/openmined/snipsync/internal/mirror"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    created_at TEXT NOT NULL, -- UTC, fixed width nanoseconds
    phase TEXT NOT NULL,
    origin TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    action TEXT NOT NULL,
    bytes INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity(created_at);
CREATE INDEX IF NOT EXISTS idx_activity_name ON activity(name);
`

// fixed width so that text order is time order
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrJournalOpen   = errors.New("journal already open")
	ErrJournalClosed = errors.New("journal not open")
)

// Entry is one handled event or reconciliation result.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	Phase     string    `json:"phase"`
	Origin    string    `json:"origin"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	Bytes     int64     `json:"bytes"`
	Error     string    `json:"error,omitempty"`
}

// dbEntry is used for scanning, time is stored as TEXT.
type dbEntry struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	CreatedAt string `db:"created_at"`
	Phase     string `db:"phase"`
	Origin    string `db:"origin"`
	Name      string `db:"name"`
	Kind      string `db:"kind"`
	Action    string `db:"action"`
	Bytes     int64  `db:"bytes"`
	Error     string `db:"error"`
}

// Journal appends mirror activity to an SQLite table. Every process run gets
// its own session id.
type Journal struct {
	mu        sync.Mutex
	db        *sqlx.DB
	dbPath    string
	sessionID string
}

func NewJournal(dbPath string) *Journal {
	return &Journal{
		dbPath:    dbPath,
		sessionID: uuid.NewString(),
	}
}

func (j *Journal) SessionID() string {
	return j.sessionID
}

func (j *Journal) Open() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db != nil {
		return ErrJournalOpen
	}

	database, err := db.NewSqliteDB(db.WithPath(j.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	j.db = database
	slog.Debug("journal open", "path", j.dbPath, "session", j.sessionID)
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return ErrJournalClosed
	}
	err := j.db.Close()
	j.db = nil
	if err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	slog.Debug("journal closed")
	return nil
}

// Append stores a single activity.
func (j *Journal) Append(a mirror.Activity) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return ErrJournalClosed
	}

	row := dbEntry{
		ID:        uuid.NewString(),
		SessionID: j.sessionID,
		CreatedAt: a.Time.UTC().Format(timeFormat),
		Phase:     string(a.Phase),
		Origin:    a.Origin.String(),
		Name:      a.Name,
		Kind:      a.Kind.String(),
		Action:    string(a.Action),
		Bytes:     a.Bytes,
	}
	if a.Err != nil {
		row.Error = a.Err.Error()
	}

	query := `INSERT INTO activity (id, session_id, created_at, phase, origin, name, kind, action, bytes, error)
	          VALUES (:id, :session_id, :created_at, :phase, :origin, :name, :kind, :action, :bytes, :error)`
	if _, err := j.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to append activity for %s: %w", a.Name, err)
	}
	return nil
}

// Record implements mirror.Recorder. Failures are logged and dropped.
func (j *Journal) Record(a mirror.Activity) {
	if err := j.Append(a); err != nil {
		slog.Warn("journal record", "name", a.Name, "error", err)
	}
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil, ErrJournalClosed
	}

	query := `SELECT id, session_id, created_at, phase, origin, name, kind, action, bytes, error
	          FROM activity ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []dbEntry
	if err := j.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(timeFormat, row.CreatedAt)
		if err != nil {
			slog.Error("journal entry with bad timestamp", "id", row.ID, "value", row.CreatedAt, "error", err)
			continue
		}
		entries = append(entries, Entry{
			ID:        row.ID,
			SessionID: row.SessionID,
			Time:      ts,
			Phase:     row.Phase,
			Origin:    row.Origin,
			Name:      row.Name,
			Kind:      row.Kind,
			Action:    row.Action,
			Bytes:     row.Bytes,
			Error:     row.Error,
		})
	}
	return entries, nil
}

// Count returns the number of entries in the journal.
func (j *Journal) Count() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return 0, ErrJournalClosed
	}

	var count int
	if err := j.db.Get(&count, "SELECT COUNT(*) FROM activity"); err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}
	return count, nil
}
