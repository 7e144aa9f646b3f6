package mcp

import (
	"context"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListRoutines(ctx context.Context, userID int) ([]storage.RoutineSummary, error)
	GetRoutine(ctx context.Context, routineID uuid.UUID, userID int) (*models.Routine, error)
	ListActiveSessions(ctx context.Context, userID int) ([]models.ActiveWorkoutSession, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
