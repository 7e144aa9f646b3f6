package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/resttime"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	routines, err := s.db.ListRoutines(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	routineID, err := uuid.Parse(chi.URLParam(r, "routineID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine ID"})
		return
	}
	routine, err := s.db.GetRoutine(r.Context(), routineID, userIDFromContext(r))
	if err != nil {
		if errors.Is(err, storage.ErrRoutineNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var routine models.Routine
	if err := json.NewDecoder(r.Body).Decode(&routine); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	routine.UserID = userIDFromContext(r)

	if err := validateRoutine(&routine); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Pre-fill missing rest overrides with the heuristic so execution has
	// a concrete value authored into the routine.
	for i := range routine.Exercises {
		slot := &routine.Exercises[i]
		if slot.RestSeconds == nil {
			slot.RestSeconds = models.Ptr(resttime.Compute(
				slot.Exercise.Category, slot.Exercise.MuscleGroups,
				slot.Exercise.Difficulty, slot.TargetSets, slot.TargetReps()))
		}
	}

	created, err := s.db.CreateRoutine(r.Context(), routine)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func validateRoutine(r *models.Routine) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("routine name is required")
	}
	seen := make(map[[2]int]bool)
	for i, slot := range r.Exercises {
		if strings.TrimSpace(slot.Exercise.Name) == "" {
			return fmt.Errorf("exercise %d: name is required", i+1)
		}
		if slot.DayOfWeek < 1 || slot.DayOfWeek > 7 {
			return fmt.Errorf("exercise %d: day_of_week must be 1-7", i+1)
		}
		if slot.OrderInDay < 1 {
			return fmt.Errorf("exercise %d: order_in_day must be positive", i+1)
		}
		if slot.TargetSets < 1 {
			return fmt.Errorf("exercise %d: target_sets must be positive", i+1)
		}
		if slot.RepRangeMin != nil && *slot.RepRangeMin < 1 {
			return fmt.Errorf("exercise %d: rep_range_min must be positive", i+1)
		}
		if slot.RepRangeMin != nil && slot.RepRangeMax != nil && *slot.RepRangeMin > *slot.RepRangeMax {
			return fmt.Errorf("exercise %d: rep_range_min exceeds rep_range_max", i+1)
		}
		key := [2]int{slot.DayOfWeek, slot.OrderInDay}
		if seen[key] {
			return fmt.Errorf("exercise %d: duplicate order_in_day %d for day %d", i+1, slot.OrderInDay, slot.DayOfWeek)
		}
		seen[key] = true
	}
	return nil
}

// handleRestTime exposes the rest heuristic for authoring UIs:
// GET /api/v1/rest-time?category=strength&muscle_groups=legs,back&difficulty=advanced&sets=5&reps=4
func (s *Server) handleRestTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sets, err := strconv.Atoi(q.Get("sets"))
	if err != nil || sets < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sets must be a positive integer"})
		return
	}
	reps := 0
	if v := q.Get("reps"); v != "" {
		if reps, err = strconv.Atoi(v); err != nil || reps < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reps must be a non-negative integer"})
			return
		}
	}

	var groups []string
	if v := q.Get("muscle_groups"); v != "" {
		groups = strings.Split(v, ",")
	}
	category := q.Get("category")

	writeJSON(w, http.StatusOK, map[string]any{
		"rest_seconds":   resttime.Compute(category, groups, q.Get("difficulty"), sets, reps),
		"classification": resttime.Classify(category, groups).String(),
	})
}
