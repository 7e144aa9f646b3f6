// Package session binds a user's live workout execution to a persisted
// active-session record. The Orchestrator applies UI intent (complete a set,
// advance, rest, pause, complete) as single store round-trips and mirrors
// the confirmed record into derived progress state; the Store interface
// abstracts where the record lives so the core is testable without a
// database.
package session

import (
	"context"
	"errors"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotAuthenticated means no current user could be resolved; no
	// session is created or mutated.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound means the addressed session no longer exists in the
	// store (for example deleted from another device).
	ErrNotFound = errors.New("active session not found")

	// ErrNoActiveSession means an operation requiring an initialized
	// session was called before Initialize succeeded.
	ErrNoActiveSession = errors.New("no active session")

	// ErrNoExercises means Initialize was given an empty exercise list;
	// nothing was created.
	ErrNoExercises = errors.New("routine has no exercises for this day")

	// ErrOutOfRange means an advance past the end of the exercise list was
	// requested; callers should check IsComplete first.
	ErrOutOfRange = errors.New("no next exercise")
)

// Store is the persistence collaborator for active sessions. One row exists
// per (user, routine) pair at most. Implementations must bump
// last_activity_at/updated_at on every Update and return ErrNotFound
// (possibly wrapped) when the addressed row is absent.
type Store interface {
	// Find returns the active session for the pair, or ErrNotFound.
	Find(ctx context.Context, userID int, routineID uuid.UUID) (*models.ActiveWorkoutSession, error)

	// Create persists a new session. The given record carries identity,
	// position, and the seeded in-progress buffer; the store assigns
	// timestamps (and the ID when unset) and returns the stored record.
	Create(ctx context.Context, s *models.ActiveWorkoutSession) (*models.ActiveWorkoutSession, error)

	// Update applies exactly the non-nil fields of the update to the
	// session and returns the stored record, or ErrNotFound.
	Update(ctx context.Context, sessionID uuid.UUID, u models.SessionUpdate) (*models.ActiveWorkoutSession, error)

	// Delete removes the session row. Deleting an absent row returns
	// ErrNotFound.
	Delete(ctx context.Context, sessionID uuid.UUID) error
}
