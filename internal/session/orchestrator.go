package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/resttime"
	"github.com/google/uuid"
)

// Progress is the derived view of a session for display: position counters,
// totals, and the persisted rest/pause mirror. Computed locally, no I/O.
type Progress struct {
	RoutineID       uuid.UUID `json:"routine_id"`
	RoutineName     string    `json:"routine_name"`
	ExerciseIndex   int       `json:"exercise_index"`
	SetNumber       int       `json:"set_number"`
	TotalExercises  int       `json:"total_exercises"`
	CompletedCount  int       `json:"completed_count"`
	Resting         bool      `json:"resting"`
	RestSecondsLeft int       `json:"rest_seconds_left"`
	Paused          bool      `json:"paused"`
	WorkoutComplete bool      `json:"workout_complete"`
}

// Orchestrator is the authoritative bridge between UI intent and the
// persisted active session for one (user, routine) pair. Every mutating
// operation performs exactly one store round-trip and only mirrors the
// confirmed record into local state afterwards, so local progress never
// claims a mutation the store rejected. Failed calls record a message
// retrievable via Err and leave prior state untouched. The Orchestrator
// never retries; the caller decides whether to re-issue the action.
//
// Methods serialize on an internal mutex, so overlapping calls from one
// process cannot interleave their read-modify-write cycles. Concurrent
// execution of the same session from another device remains last-write-wins
// at the store.
type Orchestrator struct {
	mu     sync.Mutex
	store  Store
	userID int
	log    *slog.Logger

	sess      *models.ActiveWorkoutSession
	exercises []models.RoutineExercise
	errMsg    string
}

// New creates an Orchestrator for one user backed by the given store.
func New(store Store, userID int, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{store: store, userID: userID, log: log}
}

// Initialize resumes the user's active session for the routine, or creates
// one at exercise 0, set 1 when none exists. Resuming clears the pause flag
// and touches last-activity; the persisted rest snapshot in the returned
// record is what a live countdown should be re-seeded from. An empty
// exercise list creates nothing and returns ErrNoExercises.
func (o *Orchestrator) Initialize(ctx context.Context, routineID uuid.UUID, routineName string, exercises []models.RoutineExercise) (*models.ActiveWorkoutSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.userID <= 0 {
		return nil, o.fail(ErrNotAuthenticated)
	}

	existing, err := o.store.Find(ctx, o.userID, routineID)
	switch {
	case err == nil:
		resumed, err := o.store.Update(ctx, existing.ID, models.SessionUpdate{
			IsPaused: models.Ptr(false),
		})
		if err != nil {
			return nil, o.fail(fmt.Errorf("resuming session: %w", err))
		}
		o.exercises = exercises
		o.sess = resumed
		o.errMsg = ""
		o.log.Info("session resumed", "session_id", resumed.ID, "routine_id", routineID,
			"exercise_index", resumed.CurrentExerciseIndex, "set", resumed.CurrentSet)
		return o.snapshotLocked(), nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return nil, o.fail(fmt.Errorf("looking up session: %w", err))
	}

	if len(exercises) == 0 {
		return nil, o.fail(ErrNoExercises)
	}

	created, err := o.store.Create(ctx, &models.ActiveWorkoutSession{
		UserID:               o.userID,
		RoutineID:            routineID,
		RoutineName:          routineName,
		CurrentExerciseIndex: 0,
		CurrentSet:           1,
		CurrentDay:           1,
		CompletedExercises:   []models.ExerciseLog{},
		InProgress:           models.NewExerciseLog(exercises[0]),
	})
	if err != nil {
		return nil, o.fail(fmt.Errorf("creating session: %w", err))
	}
	o.exercises = exercises
	o.sess = created
	o.errMsg = ""
	o.log.Info("session created", "session_id", created.ID, "routine_id", routineID,
		"exercises", len(exercises))
	return o.snapshotLocked(), nil
}

// CompleteSet records one performed set: reps (and weight, when given) land
// in the in-progress buffer at index current_set−1, and the persisted
// current_set advances by one, capped at target sets + 1 (the sentinel for
// "exercise fully completed"). Whether a rest period or an exercise advance
// follows is the caller's policy, not decided here.
func (o *Orchestrator) CompleteSet(ctx context.Context, reps int, weight *float64, notes string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess == nil {
		return o.fail(ErrNoActiveSession)
	}

	buf := cloneLog(o.sess.InProgress)
	idx := o.sess.CurrentSet - 1
	if idx < 0 {
		idx = 0
	}
	buf.RepsPerformed = setIntAt(buf.RepsPerformed, idx, reps)
	buf.SetsCompleted = setBoolAt(buf.SetsCompleted, idx, true)
	if weight != nil {
		buf.WeightsUsed = setFloatAt(buf.WeightsUsed, idx, *weight)
	}
	if notes != "" {
		buf.Notes = notes
	}

	newSet := o.sess.CurrentSet + 1
	if sentinel := buf.TargetSets + 1; buf.TargetSets > 0 && newSet > sentinel {
		newSet = sentinel
	}

	updated, err := o.store.Update(ctx, o.sess.ID, models.SessionUpdate{
		InProgress: &buf,
		CurrentSet: &newSet,
	})
	if err != nil {
		return o.fail(fmt.Errorf("recording set: %w", err))
	}
	o.sess = updated
	o.errMsg = ""
	return nil
}

// NextExercise moves execution to the next exercise: when saveCompleted, the
// in-progress buffer is stamped and appended to the completed log; the
// buffer is reset for the new exercise and the set counter returns to 1.
// Advancing from the last exercise is permitted exactly once as the
// finalizing step — it appends the buffer and leaves the index one past the
// end, after which IsComplete reports true and further advances return
// ErrOutOfRange without mutating anything.
func (o *Orchestrator) NextExercise(ctx context.Context, saveCompleted bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess == nil {
		return o.fail(ErrNoActiveSession)
	}

	nextIdx := o.sess.CurrentExerciseIndex + 1
	if nextIdx > len(o.exercises) {
		return o.fail(ErrOutOfRange)
	}

	completed := o.sess.CompletedExercises
	if saveCompleted {
		buf := cloneLog(o.sess.InProgress)
		buf.CompletedAt = time.Now().UTC()
		completed = append(append([]models.ExerciseLog{}, o.sess.CompletedExercises...), buf)
	}

	var newBuf models.ExerciseLog
	if nextIdx < len(o.exercises) {
		newBuf = models.NewExerciseLog(o.exercises[nextIdx])
	}

	updated, err := o.store.Update(ctx, o.sess.ID, models.SessionUpdate{
		CurrentExerciseIndex: &nextIdx,
		CurrentSet:           models.Ptr(1),
		CompletedExercises:   &completed,
		InProgress:           &newBuf,
		IsResting:            models.Ptr(false),
		RestTimerSeconds:     models.Ptr(0),
	})
	if err != nil {
		return o.fail(fmt.Errorf("advancing exercise: %w", err))
	}
	o.sess = updated
	o.errMsg = ""
	o.log.Info("exercise advanced", "session_id", updated.ID,
		"exercise_index", updated.CurrentExerciseIndex,
		"completed", len(updated.CompletedExercises))
	return nil
}

// StartRest persists the rest snapshot the session would resume its
// countdown from after a reload. It is independent of any live timer: the
// persisted fields are the durable source of truth, the timer's countdown
// the live one, reconciled at Initialize.
func (o *Orchestrator) StartRest(ctx context.Context, seconds int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess == nil {
		return o.fail(ErrNoActiveSession)
	}
	if seconds < 0 {
		seconds = 0
	}

	updated, err := o.store.Update(ctx, o.sess.ID, models.SessionUpdate{
		IsResting:        models.Ptr(seconds > 0),
		RestTimerSeconds: &seconds,
	})
	if err != nil {
		return o.fail(fmt.Errorf("starting rest: %w", err))
	}
	o.sess = updated
	o.errMsg = ""
	return nil
}

// EndRest clears the persisted rest snapshot.
func (o *Orchestrator) EndRest(ctx context.Context) error {
	return o.StartRest(ctx, 0)
}

// Pause persists the pause flag. Progress is kept; Initialize clears the
// flag on the next resume.
func (o *Orchestrator) Pause(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess == nil {
		return o.fail(ErrNoActiveSession)
	}

	updated, err := o.store.Update(ctx, o.sess.ID, models.SessionUpdate{
		IsPaused: models.Ptr(true),
	})
	if err != nil {
		return o.fail(fmt.Errorf("pausing session: %w", err))
	}
	o.sess = updated
	o.errMsg = ""
	return nil
}

// Complete deletes the persisted session outright and clears local state.
// Historical-record writes, if any, are a store concern, not done here.
func (o *Orchestrator) Complete(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess == nil {
		return o.fail(ErrNoActiveSession)
	}

	if err := o.store.Delete(ctx, o.sess.ID); err != nil {
		return o.fail(fmt.Errorf("completing session: %w", err))
	}
	o.log.Info("session completed", "session_id", o.sess.ID,
		"completed_exercises", len(o.sess.CompletedExercises))
	o.sess = nil
	o.exercises = nil
	o.errMsg = ""
	return nil
}

// CanAdvance reports whether a further exercise exists beyond the current
// one. The finalizing advance off the last exercise is still allowed when
// this is false.
func (o *Orchestrator) CanAdvance() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess != nil && o.sess.CurrentExerciseIndex < len(o.exercises)-1
}

// IsComplete reports whether execution has advanced past the last exercise.
// Being *on* the last exercise is not complete — the workout only counts as
// done once the finalizing NextExercise has run.
func (o *Orchestrator) IsComplete() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess != nil && o.sess.CurrentExerciseIndex >= len(o.exercises)
}

// CurrentExercise returns the routine slot under execution, or nil when no
// session is active or execution has passed the last exercise.
func (o *Orchestrator) CurrentExercise() *models.RoutineExercise {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil || o.sess.CurrentExerciseIndex >= len(o.exercises) {
		return nil
	}
	ex := o.exercises[o.sess.CurrentExerciseIndex]
	return &ex
}

// RestForCurrent returns the rest to apply after a set of the current
// exercise: the authored override when present, otherwise the heuristic
// recommendation.
func (o *Orchestrator) RestForCurrent() int {
	ex := o.CurrentExercise()
	if ex == nil {
		return 0
	}
	if ex.RestSeconds != nil {
		return *ex.RestSeconds
	}
	return resttime.Compute(ex.Exercise.Category, ex.Exercise.MuscleGroups,
		ex.Exercise.Difficulty, ex.TargetSets, ex.TargetReps())
}

// ProgressURL returns a deep-link path encoding routine, exercise index,
// and set number, for resuming via URL.
func (o *Orchestrator) ProgressURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return ""
	}
	return fmt.Sprintf("/routines/%s/execute?exercise=%d&set=%d",
		o.sess.RoutineID, o.sess.CurrentExerciseIndex, o.sess.CurrentSet)
}

// Progress returns the derived progress counters.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return Progress{}
	}
	return Progress{
		RoutineID:       o.sess.RoutineID,
		RoutineName:     o.sess.RoutineName,
		ExerciseIndex:   o.sess.CurrentExerciseIndex,
		SetNumber:       o.sess.CurrentSet,
		TotalExercises:  len(o.exercises),
		CompletedCount:  len(o.sess.CompletedExercises),
		Resting:         o.sess.IsResting,
		RestSecondsLeft: o.sess.RestTimerSeconds,
		Paused:          o.sess.IsPaused,
		WorkoutComplete: o.sess.CurrentExerciseIndex >= len(o.exercises),
	}
}

// Session returns a copy of the confirmed session record, or nil when no
// session is active.
func (o *Orchestrator) Session() *models.ActiveWorkoutSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Err returns the human-readable message of the last failed operation, or
// the empty string after a success.
func (o *Orchestrator) Err() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

func (o *Orchestrator) snapshotLocked() *models.ActiveWorkoutSession {
	if o.sess == nil {
		return nil
	}
	cp := *o.sess
	cp.CompletedExercises = append([]models.ExerciseLog{}, o.sess.CompletedExercises...)
	cp.InProgress = cloneLog(o.sess.InProgress)
	return &cp
}

// fail records the error message for UI polling and returns the error
// unchanged. Local session state is deliberately untouched.
func (o *Orchestrator) fail(err error) error {
	o.errMsg = err.Error()
	o.log.Warn("session operation failed", "user_id", o.userID, "error", err)
	return err
}

func cloneLog(l models.ExerciseLog) models.ExerciseLog {
	cp := l
	cp.SetsCompleted = append([]bool{}, l.SetsCompleted...)
	cp.RepsPerformed = append([]int{}, l.RepsPerformed...)
	cp.WeightsUsed = append([]float64{}, l.WeightsUsed...)
	return cp
}

func setIntAt(s []int, i, v int) []int {
	for len(s) <= i {
		s = append(s, 0)
	}
	s[i] = v
	return s
}

func setBoolAt(s []bool, i int, v bool) []bool {
	for len(s) <= i {
		s = append(s, false)
	}
	s[i] = v
	return s
}

func setFloatAt(s []float64, i int, v float64) []float64 {
	for len(s) <= i {
		s = append(s, 0)
	}
	s[i] = v
	return s
}
