// Package timer implements the live execution clock for one pass through an
// ordered list of exercises. The timer is purely in-memory: it tracks
// elapsed time, the current exercise/set position, and an optional rest
// countdown, independent of whatever session record is persisted elsewhere.
package timer

import (
	"sync"
	"time"
)

// Status is the timer's lifecycle state.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Finished
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot handed to callers for display. It is a
// mirror of the live countdown, distinct from any persisted rest snapshot.
type State struct {
	Status            Status
	ExerciseIndex     int
	CurrentSet        int
	Elapsed           time.Duration
	Resting           bool
	RestRemaining     time.Duration
	TotalExercises    int
	CompletedAdvances int
}

// DefaultTickInterval is the period of the internal ticker while running.
// Each tick measures the real wall-clock delta since the previous tick, so
// the accounting tolerates ticker drift and process suspension.
const DefaultTickInterval = 250 * time.Millisecond

// Timer is a single-run state machine over a fixed exercise count. A
// finished timer never runs again; construct a new one for the next pass.
type Timer struct {
	mu sync.Mutex

	status        Status
	exerciseIndex int
	currentSet    int
	elapsed       time.Duration
	resting       bool
	restRemaining time.Duration

	totalExercises int
	advances       int

	now          func() time.Time
	lastTick     time.Time
	tickInterval time.Duration
	stopTick     chan struct{}

	onFinish   func()
	onAdvance  func(newIndex int)
	finishSent bool
}

// Option configures a Timer at construction.
type Option func(*Timer)

// WithClock replaces the wall-clock source. Tests use this together with
// WithTickInterval(0) to drive ticks manually.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTickInterval sets the internal ticker period. A zero interval disables
// the internal ticker entirely; the owner then advances time via Tick.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) { t.tickInterval = d }
}

// WithOnFinish registers a callback invoked exactly once when the timer
// reaches Finished. The callback runs synchronously inside the transition,
// before the triggering call returns.
func WithOnFinish(fn func()) Option {
	return func(t *Timer) { t.onFinish = fn }
}

// WithOnAdvance registers a callback invoked on each exercise advance that
// stays in bounds, with the new exercise index. Synchronous, like OnFinish.
func WithOnAdvance(fn func(newIndex int)) Option {
	return func(t *Timer) { t.onAdvance = fn }
}

// New creates an idle timer over totalExercises exercises.
func New(totalExercises int, opts ...Option) *Timer {
	t := &Timer{
		currentSet:     1,
		totalExercises: totalExercises,
		now:            time.Now,
		tickInterval:   DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start transitions idle → running and begins ticking. No-op in any other
// state.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != Idle {
		return
	}
	t.status = Running
	t.beginTicking()
}

// Pause transitions running → paused and tears down the ticker so no time
// accumulates while paused.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != Running {
		return
	}
	t.status = Paused
	t.stopTicking()
}

// Resume transitions paused → running and restarts the ticker. The tick
// baseline resets to now, so paused wall-clock time is not counted.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != Paused {
		return
	}
	t.status = Running
	t.beginTicking()
}

// Reset returns the timer to its initial idle state with zero counters,
// regardless of prior state. The finish callback may fire again after a
// reset-and-rerun only if it never fired before.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTicking()
	t.status = Idle
	t.exerciseIndex = 0
	t.currentSet = 1
	t.elapsed = 0
	t.resting = false
	t.restRemaining = 0
	t.advances = 0
}

// StartRest begins a rest countdown without changing the run status.
func (t *Timer) StartRest(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d < 0 {
		d = 0
	}
	t.resting = d > 0
	t.restRemaining = d
}

// SkipRest clears any active rest countdown immediately.
func (t *Timer) SkipRest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resting = false
	t.restRemaining = 0
}

// NextSet increments the current set and clears any rest.
func (t *Timer) NextSet() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentSet++
	t.resting = false
	t.restRemaining = 0
}

// NextExercise advances to the next exercise, resetting the set counter and
// clearing rest. Advancing past the last exercise finishes the timer.
func (t *Timer) NextExercise() {
	t.mu.Lock()
	if t.status == Finished {
		t.mu.Unlock()
		return
	}
	t.exerciseIndex++
	t.currentSet = 1
	t.resting = false
	t.restRemaining = 0

	if t.exerciseIndex >= t.totalExercises {
		t.finishLocked()
		return // finishLocked unlocks
	}

	t.advances++
	newIndex := t.exerciseIndex
	fn := t.onAdvance
	t.mu.Unlock()
	if fn != nil {
		fn(newIndex)
	}
}

// SkipExercise advances without logging; identical transition to
// NextExercise.
func (t *Timer) SkipExercise() { t.NextExercise() }

// Finish force-transitions to Finished from any non-finished state.
func (t *Timer) Finish() {
	t.mu.Lock()
	if t.status == Finished {
		t.mu.Unlock()
		return
	}
	t.finishLocked()
}

// finishLocked completes the transition to Finished and fires the finish
// callback at most once. Called with t.mu held; unlocks before invoking the
// callback so a callback may safely read the snapshot.
func (t *Timer) finishLocked() {
	t.stopTicking()
	t.status = Finished
	t.resting = false
	t.restRemaining = 0
	fire := !t.finishSent && t.onFinish != nil
	t.finishSent = true
	fn := t.onFinish
	t.mu.Unlock()
	if fire {
		fn()
	}
}

// Snapshot returns the current state for display.
func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Status:            t.status,
		ExerciseIndex:     t.exerciseIndex,
		CurrentSet:        t.currentSet,
		Elapsed:           t.elapsed,
		Resting:           t.resting,
		RestRemaining:     t.restRemaining,
		TotalExercises:    t.totalExercises,
		CompletedAdvances: t.advances,
	}
}

// Tick applies one clock observation. While running, the elapsed wall-clock
// delta since the previous observation is charged against the rest countdown
// (if resting) or the elapsed counter. Ticks outside Running are ignored.
// The internal ticker calls this; owners with a disabled ticker call it
// directly.
func (t *Timer) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickLocked()
}

func (t *Timer) tickLocked() {
	if t.status != Running {
		return
	}
	now := t.now()
	delta := now.Sub(t.lastTick)
	t.lastTick = now
	if delta <= 0 {
		return
	}

	if t.resting && t.restRemaining > 0 {
		t.restRemaining -= delta
		if t.restRemaining <= 0 {
			t.restRemaining = 0
			t.resting = false
		}
		return
	}
	t.elapsed += delta
}

// beginTicking resets the delta baseline and starts the internal ticker
// loop. Called with t.mu held.
func (t *Timer) beginTicking() {
	t.lastTick = t.now()
	if t.tickInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	t.stopTick = stop
	go func() {
		ticker := time.NewTicker(t.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.Tick()
			}
		}
	}()
}

// stopTicking tears down the internal ticker loop, preventing any tick from
// landing while idle, paused, or finished. Called with t.mu held.
func (t *Timer) stopTicking() {
	if t.stopTick != nil {
		close(t.stopTick)
		t.stopTick = nil
	}
}
