package mcp

import (
	"context"
	"strings"

	"github.com/claude/repflow/internal/resttime"
	"github.com/claude/repflow/internal/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListRoutines = mcp.NewTool("list_routines",
	mcp.WithDescription("List the user's workout routines with exercise counts."),
)

var toolGetRoutine = mcp.NewTool("get_routine",
	mcp.WithDescription("Get a routine in full: every exercise slot with day, order, target sets, rep range, and rest override."),
	mcp.WithString("routine_id", mcp.Required(), mcp.Description("Routine UUID")),
)

var toolListActiveSessions = mcp.NewTool("list_active_sessions",
	mcp.WithDescription("List all in-flight workout sessions: position, completed exercises, rest and pause state."),
)

var toolGetSessionProgress = mcp.NewTool("get_session_progress",
	mcp.WithDescription("Get derived progress for the active session of one routine: exercise index, set number, totals, completion."),
	mcp.WithString("routine_id", mcp.Required(), mcp.Description("Routine UUID")),
)

var toolSuggestRestTime = mcp.NewTool("suggest_rest_time",
	mcp.WithDescription("Compute a rest-time recommendation in seconds from exercise attributes. Deterministic; classification by category/muscle-group keywords, adjusted for difficulty, set count, and rep target, clamped to 15-180s."),
	mcp.WithNumber("sets", mcp.Required(), mcp.Description("Planned set count")),
	mcp.WithNumber("reps", mcp.Description("Target reps per set. 0 or omitted skips the rep adjustment.")),
	mcp.WithString("category", mcp.Description("Exercise category (e.g. strength, cardio, isolation)")),
	mcp.WithString("muscle_groups", mcp.Description("Comma-separated muscle groups (e.g. legs,back)")),
	mcp.WithString("difficulty", mcp.Description("beginner, intermediate, or advanced")),
)

// --- Tool handlers ---

func (h *handlers) listRoutines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	routines, err := h.ds.ListRoutines(ctx, uid)
	if err != nil {
		h.log.Error("mcp list_routines", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(routines)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("routine_id")
	if err != nil {
		return mcp.NewToolResultError("routine_id parameter is required"), nil
	}
	routineID, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("routine_id is not a valid UUID"), nil
	}

	uid := UserIDFromContext(ctx)
	routine, err := h.ds.GetRoutine(ctx, routineID, uid)
	if err != nil {
		h.log.Error("mcp get_routine", "routine_id", routineID, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(routine)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listActiveSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	sessions, err := h.ds.ListActiveSessions(ctx, uid)
	if err != nil {
		h.log.Error("mcp list_active_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("routine_id")
	if err != nil {
		return mcp.NewToolResultError("routine_id parameter is required"), nil
	}
	routineID, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("routine_id is not a valid UUID"), nil
	}

	uid := UserIDFromContext(ctx)
	sessions, err := h.ds.ListActiveSessions(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_session_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	for _, sess := range sessions {
		if sess.RoutineID != routineID {
			continue
		}
		total := 0
		if routine, err := h.ds.GetRoutine(ctx, routineID, uid); err == nil {
			total = len(routine.DayExercises(sess.CurrentDay))
		}
		progress := session.Progress{
			RoutineID:       sess.RoutineID,
			RoutineName:     sess.RoutineName,
			ExerciseIndex:   sess.CurrentExerciseIndex,
			SetNumber:       sess.CurrentSet,
			TotalExercises:  total,
			CompletedCount:  len(sess.CompletedExercises),
			Resting:         sess.IsResting,
			RestSecondsLeft: sess.RestTimerSeconds,
			Paused:          sess.IsPaused,
			WorkoutComplete: total > 0 && sess.CurrentExerciseIndex >= total,
		}
		result, err := mcp.NewToolResultJSON(progress)
		if err != nil {
			return mcp.NewToolResultError("serialization failed"), nil
		}
		return result, nil
	}
	return mcp.NewToolResultError("no active session for routine " + routineID.String()), nil
}

func (h *handlers) suggestRestTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sets, err := req.RequireInt("sets")
	if err != nil || sets < 1 {
		return mcp.NewToolResultError("sets must be a positive integer"), nil
	}
	reps := req.GetInt("reps", 0)

	var groups []string
	if raw := req.GetString("muscle_groups", ""); raw != "" {
		groups = strings.Split(raw, ",")
	}
	category := req.GetString("category", "")
	difficulty := req.GetString("difficulty", "")

	result, err := mcp.NewToolResultJSON(map[string]any{
		"rest_seconds":   resttime.Compute(category, groups, difficulty, sets, reps),
		"classification": resttime.Classify(category, groups).String(),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
