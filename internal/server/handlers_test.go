package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
)

// fakeStore backs handler tests: it satisfies both the Datastore interface
// and session.Store, standing in for *storage.DB.
type fakeStore struct {
	routines map[uuid.UUID]*models.Routine
	sessions map[uuid.UUID]*models.ActiveWorkoutSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routines: make(map[uuid.UUID]*models.Routine),
		sessions: make(map[uuid.UUID]*models.ActiveWorkoutSession),
	}
}

func (f *fakeStore) CreateRoutine(_ context.Context, r models.Routine) (*models.Routine, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.routines[r.ID] = &r
	return &r, nil
}

func (f *fakeStore) GetRoutine(_ context.Context, routineID uuid.UUID, userID int) (*models.Routine, error) {
	r, ok := f.routines[routineID]
	if !ok || r.UserID != userID {
		return nil, storage.ErrRoutineNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRoutines(_ context.Context, userID int) ([]storage.RoutineSummary, error) {
	var out []storage.RoutineSummary
	for _, r := range f.routines {
		if r.UserID == userID {
			out = append(out, storage.RoutineSummary{ID: r.ID, Name: r.Name, ExerciseCount: len(r.Exercises)})
		}
	}
	return out, nil
}

func (f *fakeStore) ListActiveSessions(_ context.Context, userID int) ([]models.ActiveWorkoutSession, error) {
	var out []models.ActiveWorkoutSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	return 1, nil
}

func (f *fakeStore) Find(_ context.Context, userID int, routineID uuid.UUID) (*models.ActiveWorkoutSession, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.RoutineID == routineID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, session.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, s *models.ActiveWorkoutSession) (*models.ActiveWorkoutSession, error) {
	cp := *s
	cp.ID = uuid.New()
	now := time.Now().UTC()
	cp.StartedAt = now
	cp.LastActivityAt = now
	cp.CreatedAt = now
	cp.UpdatedAt = now
	f.sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) Update(_ context.Context, sessionID uuid.UUID, u models.SessionUpdate) (*models.ActiveWorkoutSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	u.Apply(s, time.Now().UTC())
	cp := *s
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, sessionID uuid.UUID) error {
	if _, ok := f.sessions[sessionID]; !ok {
		return session.ErrNotFound
	}
	delete(f.sessions, sessionID)
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, session.NewManager(store, log), "test-key", log), store
}

func seedRoutine(store *fakeStore, setCounts ...int) *models.Routine {
	r := models.Routine{ID: uuid.New(), UserID: 1, Name: "Push Day"}
	for i, sets := range setCounts {
		r.Exercises = append(r.Exercises, models.RoutineExercise{
			ID:         uuid.New(),
			RoutineID:  r.ID,
			DayOfWeek:  1,
			OrderInDay: i + 1,
			TargetSets: sets,
			Exercise: models.Exercise{
				ID:       uuid.New(),
				Name:     fmt.Sprintf("exercise-%d", i+1),
				Category: "strength",
			},
		})
	}
	store.routines[r.ID] = &r
	return &r
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// TestRestTimeEndpoint verifies the heuristic endpoint computes the worked
// example from the authoring docs: advanced compound, 5 sets of 4.
func TestRestTimeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet,
		"/api/v1/rest-time?category=strength&muscle_groups=legs&difficulty=advanced&sets=5&reps=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		RestSeconds    int    `json:"rest_seconds"`
		Classification string `json:"classification"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RestSeconds != 165 {
		t.Errorf("rest_seconds = %d, want 165", resp.RestSeconds)
	}
	if resp.Classification != "compound" {
		t.Errorf("classification = %q, want compound", resp.Classification)
	}
}

// TestRestTimeRequiresSets verifies the endpoint rejects a missing or
// non-positive sets parameter.
func TestRestTimeRequiresSets(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/rest-time?category=cardio", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestCreateRoutineRequiresAPIKey verifies authoring writes are gated on
// the X-API-Key header.
func TestCreateRoutineRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{"name": "Legs"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/routines", encodeBody(t, body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/routines", encodeBody(t, body))
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d, want 403", rec.Code)
	}
}

func encodeBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatal(err)
	}
	return &buf
}

// TestCreateRoutinePrefillsRest verifies a slot authored without a rest
// override gets the heuristic value filled in before persisting.
func TestCreateRoutinePrefillsRest(t *testing.T) {
	srv, _ := newTestServer(t)

	body := models.Routine{
		Name: "Pull Day",
		Exercises: []models.RoutineExercise{{
			DayOfWeek:  1,
			OrderInDay: 1,
			TargetSets: 3,
			Exercise:   models.Exercise{Name: "Row", Category: "strength"},
		}},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/routines", encodeBody(t, body))
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var created models.Routine
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if len(created.Exercises) != 1 || created.Exercises[0].RestSeconds == nil {
		t.Fatalf("rest_seconds not pre-filled: %+v", created.Exercises)
	}
	// strength category → compound base 90, intermediate, 3 sets, 10 reps default.
	if got := *created.Exercises[0].RestSeconds; got != 90 {
		t.Errorf("rest_seconds = %d, want 90", got)
	}
}

// TestCreateRoutineValidation verifies malformed routines are rejected.
func TestCreateRoutineValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body models.Routine
	}{
		{"empty name", models.Routine{}},
		{"bad day", models.Routine{Name: "X", Exercises: []models.RoutineExercise{{
			DayOfWeek: 9, OrderInDay: 1, TargetSets: 3,
			Exercise: models.Exercise{Name: "Row"},
		}}}},
		{"inverted rep range", models.Routine{Name: "X", Exercises: []models.RoutineExercise{{
			DayOfWeek: 1, OrderInDay: 1, TargetSets: 3,
			RepRangeMin: models.Ptr(12), RepRangeMax: models.Ptr(8),
			Exercise: models.Exercise{Name: "Row"},
		}}}},
		{"duplicate order", models.Routine{Name: "X", Exercises: []models.RoutineExercise{
			{DayOfWeek: 1, OrderInDay: 1, TargetSets: 3, Exercise: models.Exercise{Name: "Row"}},
			{DayOfWeek: 1, OrderInDay: 1, TargetSets: 3, Exercise: models.Exercise{Name: "Curl"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/routines", encodeBody(t, tt.body))
			req.Header.Set("X-API-Key", "test-key")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// TestSessionLifecycleOverHTTP drives a full execution through the API:
// initialize, two sets, advance, final set, finalize, complete. The store
// must no longer hold the session afterwards.
func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, store := newTestServer(t)
	routine := seedRoutine(store, 2, 1)
	base := fmt.Sprintf("/api/v1/routines/%s/session", routine.ID)

	rec := doJSON(t, srv, http.MethodPost, base, map[string]any{"day": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("init: status = %d: %s", rec.Code, rec.Body)
	}
	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress.TotalExercises != 2 || resp.Progress.SetNumber != 1 {
		t.Fatalf("init progress = %+v", resp.Progress)
	}

	// Exercise A, two sets.
	rec = doJSON(t, srv, http.MethodPost, base+"/sets", map[string]any{"reps": 8, "weight": 60})
	if rec.Code != http.StatusOK {
		t.Fatalf("set 1: status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress.SetNumber != 2 {
		t.Errorf("set_number after first set = %d, want 2", resp.Progress.SetNumber)
	}
	rec = doJSON(t, srv, http.MethodPost, base+"/sets", map[string]any{"reps": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("set 2: status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/advance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance: status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress.ExerciseIndex != 1 || resp.Progress.CompletedCount != 1 {
		t.Errorf("advance progress = %+v, want index 1 with 1 completed", resp.Progress)
	}

	// Exercise B, one set, then the finalizing advance.
	rec = doJSON(t, srv, http.MethodPost, base+"/sets", map[string]any{"reps": 12})
	if rec.Code != http.StatusOK {
		t.Fatalf("set 3: status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, base+"/advance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize: status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Progress.WorkoutComplete || resp.Progress.CompletedCount != 2 {
		t.Errorf("finalize progress = %+v, want complete with 2 logged", resp.Progress)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d: %s", rec.Code, rec.Body)
	}
	if len(store.sessions) != 0 {
		t.Errorf("store still holds %d sessions after complete", len(store.sessions))
	}

	rec = doJSON(t, srv, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after complete: status = %d, want 404", rec.Code)
	}
}

// TestRestEndpoints verifies rest start persists the requested countdown
// (or the heuristic default) and DELETE clears it.
func TestRestEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	routine := seedRoutine(store, 3)
	base := fmt.Sprintf("/api/v1/routines/%s/session", routine.ID)

	if rec := doJSON(t, srv, http.MethodPost, base, map[string]any{"day": 1}); rec.Code != http.StatusOK {
		t.Fatalf("init: status = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodPost, base+"/rest", map[string]any{"seconds": 75})
	if rec.Code != http.StatusOK {
		t.Fatalf("rest: status = %d: %s", rec.Code, rec.Body)
	}
	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Progress.Resting || resp.Progress.RestSecondsLeft != 75 {
		t.Errorf("rest progress = %+v, want resting 75s", resp.Progress)
	}

	rec = doJSON(t, srv, http.MethodDelete, base+"/rest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end rest: status = %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress.Resting || resp.Progress.RestSecondsLeft != 0 {
		t.Errorf("after end rest = %+v, want cleared", resp.Progress)
	}

	// Without an explicit duration the authored/heuristic value applies.
	rec = doJSON(t, srv, http.MethodPost, base+"/rest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("default rest: status = %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress.RestSecondsLeft != 90 {
		t.Errorf("default rest = %d, want heuristic 90", resp.Progress.RestSecondsLeft)
	}
}

// TestInitSessionUnknownRoutine verifies a session cannot be started for a
// routine the user does not own.
func TestInitSessionUnknownRoutine(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("/api/v1/routines/%s/session", uuid.New()), map[string]any{"day": 1})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestInitSessionEmptyDay verifies a day with no authored exercises is a
// conflict, not a silent empty session.
func TestInitSessionEmptyDay(t *testing.T) {
	srv, store := newTestServer(t)
	routine := seedRoutine(store, 3) // day 1 only
	rec := doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("/api/v1/routines/%s/session", routine.ID), map[string]any{"day": 5})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
