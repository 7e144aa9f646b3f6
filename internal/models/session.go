package models

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseLog captures performance for one exercise of a session: per-set
// completion flags, reps and weights per set, and free-text notes. While the
// exercise is being executed the log lives in the session's in-progress
// buffer with a zero CompletedAt; once the user advances past the exercise
// it is stamped and appended to the completed-exercises log, after which it
// is never rewritten.
type ExerciseLog struct {
	ExerciseID    uuid.UUID `json:"exercise_id"`
	ExerciseName  string    `json:"exercise_name"`
	TargetSets    int       `json:"target_sets"`
	SetsCompleted []bool    `json:"sets_completed"`
	RepsPerformed []int     `json:"reps_performed"`
	WeightsUsed   []float64 `json:"weights_used"`
	Notes         string    `json:"notes"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

// NewExerciseLog returns an empty in-progress buffer for a routine slot.
func NewExerciseLog(re RoutineExercise) ExerciseLog {
	return ExerciseLog{
		ExerciseID:    re.Exercise.ID,
		ExerciseName:  re.Exercise.Name,
		TargetSets:    re.TargetSets,
		SetsCompleted: []bool{},
		RepsPerformed: []int{},
		WeightsUsed:   []float64{},
	}
}

// ActiveWorkoutSession is the single mutable record of one in-progress
// routine execution. At most one exists per (user, routine) pair; it is
// deleted outright on completion.
type ActiveWorkoutSession struct {
	ID          uuid.UUID `json:"id"`
	UserID      int       `json:"user_id"`
	RoutineID   uuid.UUID `json:"routine_id"`
	RoutineName string    `json:"routine_name"` // denormalized for display

	// Position. CurrentSet is 1-based and may reach TargetSets+1, the
	// sentinel meaning "exercise fully completed".
	CurrentExerciseIndex int `json:"current_exercise_index"`
	CurrentSet           int `json:"current_set"`
	CurrentDay           int `json:"current_day"`

	CompletedExercises []ExerciseLog `json:"completed_exercises"`
	InProgress         ExerciseLog   `json:"in_progress"`

	// Persisted rest snapshot — the value a resumed session restarts its
	// countdown from, not a live tick.
	IsResting        bool `json:"is_resting"`
	RestTimerSeconds int  `json:"rest_timer_seconds"`

	IsPaused bool `json:"is_paused"`

	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SessionUpdate enumerates every mutable session field as a pointer. Nil
// means "leave unchanged". Stores must apply exactly the non-nil fields and
// always bump last_activity_at and updated_at, so a new mutable field added
// here cannot be silently dropped by a store implementation.
type SessionUpdate struct {
	CurrentExerciseIndex *int
	CurrentSet           *int
	CurrentDay           *int
	CompletedExercises   *[]ExerciseLog
	InProgress           *ExerciseLog
	IsResting            *bool
	RestTimerSeconds     *int
	IsPaused             *bool
}

// Apply copies the update's non-nil fields onto s and bumps the activity
// timestamps. Shared by store implementations so the field-by-field logic
// lives in one place.
func (u SessionUpdate) Apply(s *ActiveWorkoutSession, now time.Time) {
	if u.CurrentExerciseIndex != nil {
		s.CurrentExerciseIndex = *u.CurrentExerciseIndex
	}
	if u.CurrentSet != nil {
		s.CurrentSet = *u.CurrentSet
	}
	if u.CurrentDay != nil {
		s.CurrentDay = *u.CurrentDay
	}
	if u.CompletedExercises != nil {
		s.CompletedExercises = *u.CompletedExercises
	}
	if u.InProgress != nil {
		s.InProgress = *u.InProgress
	}
	if u.IsResting != nil {
		s.IsResting = *u.IsResting
	}
	if u.RestTimerSeconds != nil {
		s.RestTimerSeconds = *u.RestTimerSeconds
	}
	if u.IsPaused != nil {
		s.IsPaused = *u.IsPaused
	}
	// Invariant: is_resting is false whenever the countdown is at zero.
	if s.RestTimerSeconds <= 0 {
		s.RestTimerSeconds = 0
		s.IsResting = false
	}
	s.LastActivityAt = now
	s.UpdatedAt = now
}

// Ptr returns a pointer to v. Keeps SessionUpdate literals readable.
func Ptr[T any](v T) *T { return &v }
