package models

import (
	"strings"

	"github.com/google/uuid"
)

// Exercise is the catalog entry a routine slot points at. Category,
// muscle groups, and difficulty are free text — the rest-time heuristic
// matches them case-insensitively against keyword lists.
type Exercise struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	MuscleGroups []string  `json:"muscle_groups"`
	Difficulty   string    `json:"difficulty"`
}

// RoutineExercise is one planned exercise slot inside a routine's day.
// Immutable during execution — the session core only reads it.
type RoutineExercise struct {
	ID          uuid.UUID `json:"id"`
	RoutineID   uuid.UUID `json:"routine_id"`
	Exercise    Exercise  `json:"exercise"`
	DayOfWeek   int       `json:"day_of_week"`  // 1-7
	OrderInDay  int       `json:"order_in_day"` // positive, unique per day
	TargetSets  int       `json:"target_sets"`
	RepRangeMin *int      `json:"rep_range_min,omitempty"`
	RepRangeMax *int      `json:"rep_range_max,omitempty"`
	// RestSeconds overrides the heuristic when set.
	RestSeconds  *int     `json:"rest_seconds,omitempty"`
	TargetWeight *float64 `json:"target_weight,omitempty"`
}

// TargetReps returns a representative rep count for the slot: the midpoint
// of the rep range, or 10 when no range was authored.
func (re RoutineExercise) TargetReps() int {
	switch {
	case re.RepRangeMin != nil && re.RepRangeMax != nil:
		return (*re.RepRangeMin + *re.RepRangeMax) / 2
	case re.RepRangeMin != nil:
		return *re.RepRangeMin
	case re.RepRangeMax != nil:
		return *re.RepRangeMax
	default:
		return 10
	}
}

// Routine is a named, user-authored template of exercises grouped by
// day-of-week.
type Routine struct {
	ID        uuid.UUID         `json:"id"`
	UserID    int               `json:"user_id"`
	Name      string            `json:"name"`
	Exercises []RoutineExercise `json:"exercises"`
}

// DayExercises returns the routine's slots for one day, assuming the
// stored order (day, order-in-day ascending).
func (r Routine) DayExercises(day int) []RoutineExercise {
	var out []RoutineExercise
	for _, ex := range r.Exercises {
		if ex.DayOfWeek == day {
			out = append(out, ex)
		}
	}
	return out
}

// NormalizeDifficulty lowercases and trims a difficulty string so lookups
// are insensitive to authoring casing.
func NormalizeDifficulty(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
