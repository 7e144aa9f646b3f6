package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time check: *DB satisfies the session store contract.
var _ session.Store = (*DB)(nil)

const sessionColumns = `id, user_id, routine_id, routine_name,
	 current_exercise_index, current_set, current_day,
	 completed_exercises, in_progress,
	 is_resting, rest_timer_seconds, is_paused,
	 started_at, last_activity_at, created_at, updated_at`

// Find returns the active session for a (user, routine) pair, or
// session.ErrNotFound. The unique constraint on the pair guarantees at most
// one row.
func (db *DB) Find(ctx context.Context, userID int, routineID uuid.UUID) (*models.ActiveWorkoutSession, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM active_sessions
		 WHERE user_id = $1 AND routine_id = $2`,
		userID, routineID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return s, nil
}

// Create inserts a new active session row. The database enforces at most
// one active session per (user, routine).
func (db *DB) Create(ctx context.Context, s *models.ActiveWorkoutSession) (*models.ActiveWorkoutSession, error) {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	completed, inProgress, err := marshalLogs(s)
	if err != nil {
		return nil, err
	}

	row := db.Pool.QueryRow(ctx,
		`INSERT INTO active_sessions (id, user_id, routine_id, routine_name,
		 current_exercise_index, current_set, current_day,
		 completed_exercises, in_progress,
		 is_resting, rest_timer_seconds, is_paused,
		 started_at, last_activity_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
		 RETURNING `+sessionColumns,
		id, s.UserID, s.RoutineID, s.RoutineName,
		s.CurrentExerciseIndex, s.CurrentSet, s.CurrentDay,
		completed, inProgress,
		s.IsResting, s.RestTimerSeconds, s.IsPaused)

	created, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("creating active session: %w", err)
	}
	return created, nil
}

// Update applies the non-nil fields of u under a row lock and returns the
// stored record. The read-modify-write keeps the field logic in
// models.SessionUpdate.Apply, shared with the other store implementations.
func (db *DB) Update(ctx context.Context, sessionID uuid.UUID, u models.SessionUpdate) (*models.ActiveWorkoutSession, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning session update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM active_sessions
		 WHERE id = $1
		 FOR UPDATE`,
		sessionID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("locking active session: %w", err)
	}

	u.Apply(s, time.Now().UTC())

	completed, inProgress, err := marshalLogs(s)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE active_sessions SET
		 current_exercise_index = $2, current_set = $3, current_day = $4,
		 completed_exercises = $5, in_progress = $6,
		 is_resting = $7, rest_timer_seconds = $8, is_paused = $9,
		 last_activity_at = $10, updated_at = $10
		 WHERE id = $1`,
		sessionID,
		s.CurrentExerciseIndex, s.CurrentSet, s.CurrentDay,
		completed, inProgress,
		s.IsResting, s.RestTimerSeconds, s.IsPaused,
		s.LastActivityAt)
	if err != nil {
		return nil, fmt.Errorf("updating active session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing session update: %w", err)
	}
	return s, nil
}

// Delete removes the session row; the session is not archived.
func (db *DB) Delete(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM active_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting active session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// ListActiveSessions returns all of a user's in-progress sessions, most
// recently active first. Used by the dashboard API and MCP tools.
func (db *DB) ListActiveSessions(ctx context.Context, userID int) ([]models.ActiveWorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM active_sessions
		 WHERE user_id = $1
		 ORDER BY last_activity_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying active sessions: %w", err)
	}
	defer rows.Close()

	var result []models.ActiveWorkoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning active session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func marshalLogs(s *models.ActiveWorkoutSession) (completed, inProgress []byte, err error) {
	logs := s.CompletedExercises
	if logs == nil {
		logs = []models.ExerciseLog{}
	}
	completed, err = json.Marshal(logs)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding completed exercises: %w", err)
	}
	inProgress, err = json.Marshal(s.InProgress)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding in-progress buffer: %w", err)
	}
	return completed, inProgress, nil
}

func scanSession(row pgx.Row) (*models.ActiveWorkoutSession, error) {
	var s models.ActiveWorkoutSession
	var completed, inProgress []byte
	err := row.Scan(&s.ID, &s.UserID, &s.RoutineID, &s.RoutineName,
		&s.CurrentExerciseIndex, &s.CurrentSet, &s.CurrentDay,
		&completed, &inProgress,
		&s.IsResting, &s.RestTimerSeconds, &s.IsPaused,
		&s.StartedAt, &s.LastActivityAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(completed, &s.CompletedExercises); err != nil {
		return nil, fmt.Errorf("decoding completed exercises: %w", err)
	}
	if err := json.Unmarshal(inProgress, &s.InProgress); err != nil {
		return nil, fmt.Errorf("decoding in-progress buffer: %w", err)
	}
	return &s, nil
}
