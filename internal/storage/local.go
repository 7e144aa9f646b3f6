package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LocalStore is a single-user SQLite session store for the terminal runner:
// the session survives between invocations without a Postgres server. The
// full record is stored as JSON next to the key columns, since the local
// store never queries inside it.
type LocalStore struct {
	db *sql.DB
}

// Compile-time check: *LocalStore satisfies the session store contract.
var _ session.Store = (*LocalStore)(nil)

// OpenLocalStore opens (or creates) the SQLite store at dir/sessions.db.
func OpenLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sessions db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS active_sessions (
		id         TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL,
		routine_id TEXT NOT NULL,
		record     TEXT NOT NULL,
		UNIQUE (user_id, routine_id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	return &LocalStore{db: db}, nil
}

// Find returns the active session for the pair, or session.ErrNotFound.
func (l *LocalStore) Find(ctx context.Context, userID int, routineID uuid.UUID) (*models.ActiveWorkoutSession, error) {
	var record string
	err := l.db.QueryRowContext(ctx,
		`SELECT record FROM active_sessions WHERE user_id = ? AND routine_id = ?`,
		userID, routineID.String()).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying local session: %w", err)
	}
	return decodeRecord(record)
}

// Create persists a new session, assigning id and timestamps.
func (l *LocalStore) Create(ctx context.Context, s *models.ActiveWorkoutSession) (*models.ActiveWorkoutSession, error) {
	cp := *s
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := time.Now().UTC()
	cp.StartedAt = now
	cp.LastActivityAt = now
	cp.CreatedAt = now
	cp.UpdatedAt = now

	record, err := json.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("encoding local session: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO active_sessions (id, user_id, routine_id, record) VALUES (?, ?, ?, ?)`,
		cp.ID.String(), cp.UserID, cp.RoutineID.String(), string(record))
	if err != nil {
		return nil, fmt.Errorf("inserting local session: %w", err)
	}
	return &cp, nil
}

// Update applies the non-nil fields and rewrites the stored record.
func (l *LocalStore) Update(ctx context.Context, sessionID uuid.UUID, u models.SessionUpdate) (*models.ActiveWorkoutSession, error) {
	var record string
	err := l.db.QueryRowContext(ctx,
		`SELECT record FROM active_sessions WHERE id = ?`, sessionID.String()).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying local session: %w", err)
	}

	s, err := decodeRecord(record)
	if err != nil {
		return nil, err
	}
	u.Apply(s, time.Now().UTC())

	updated, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding local session: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`UPDATE active_sessions SET record = ? WHERE id = ?`,
		string(updated), sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("updating local session: %w", err)
	}
	return s, nil
}

// Delete removes the session row.
func (l *LocalStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM active_sessions WHERE id = ?`, sessionID.String())
	if err != nil {
		return fmt.Errorf("deleting local session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (l *LocalStore) Close() error {
	return l.db.Close()
}

func decodeRecord(record string) (*models.ActiveWorkoutSession, error) {
	var s models.ActiveWorkoutSession
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, fmt.Errorf("decoding local session: %w", err)
	}
	return &s, nil
}
