// Package session persists scan sessions and their page order in a local
// SQLite database. The pipeline itself never touches this store; the watcher
// and CLI record what the pipeline produced.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS pages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      INTEGER NOT NULL REFERENCES sessions(id),
	seq             INTEGER NOT NULL,
	path            TEXT NOT NULL,
	needs_attention INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL,
	UNIQUE(session_id, seq)
);
`

// Session is one scanning run, typically one exam stack.
type Session struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one processed image within a session, ordered by Seq.
type Page struct {
	ID             int64     `json:"id"`
	SessionID      int64     `json:"session_id"`
	Seq            int       `json:"seq"`
	Path           string    `json:"path"`
	NeedsAttention bool      `json:"needs_attention"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store wraps the SQLite handle. Safe for concurrent use through database/sql.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateSession starts a new open session.
func (s *Store) CreateSession(ctx context.Context, name string) (Session, error) {
	if name == "" {
		return Session{}, errors.New("session name is required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (name, status, created_at) VALUES (?, 'open', ?)`, name, now)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return Session{ID: id, Name: name, Status: "open", CreatedAt: now}, nil
}

// Session loads one session by id.
func (s *Store) Session(ctx context.Context, id int64) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Name, &sess.Status, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %d not found", id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// AddPage appends a page to the session with the next sequence number.
func (s *Store) AddPage(ctx context.Context, sessionID int64, path string, needsAttention bool) (Page, error) {
	if path == "" {
		return Page{}, errors.New("page path is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Page{}, fmt.Errorf("add page: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM pages WHERE session_id = ?`, sessionID).Scan(&seq); err != nil {
		return Page{}, fmt.Errorf("next sequence: %w", err)
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO pages (session_id, seq, path, needs_attention, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, seq, path, needsAttention, now)
	if err != nil {
		return Page{}, fmt.Errorf("insert page: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Page{}, fmt.Errorf("insert page: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Page{}, fmt.Errorf("add page: %w", err)
	}
	return Page{ID: id, SessionID: sessionID, Seq: seq, Path: path, NeedsAttention: needsAttention, CreatedAt: now}, nil
}

// Pages returns the session's pages in scan order.
func (s *Store) Pages(ctx context.Context, sessionID int64) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, path, needs_attention, created_at
		 FROM pages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Seq, &p.Path, &p.NeedsAttention, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// CloseSession marks the session finished.
func (s *Store) CloseSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = 'done' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}
