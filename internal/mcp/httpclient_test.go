package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestListRoutines verifies the HTTP client hits the routines endpoint and
// parses the summary array.
func TestListRoutines(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/routines": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []storage.RoutineSummary{
				{ID: id, Name: "Push Day", ExerciseCount: 4},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	routines, err := client.ListRoutines(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(routines) != 1 {
		t.Fatalf("got %d routines, want 1", len(routines))
	}
	if routines[0].ID != id || routines[0].ExerciseCount != 4 {
		t.Errorf("routine = %+v", routines[0])
	}
}

// TestGetRoutineByID verifies the routine id lands in the URL path and the
// full routine decodes.
func TestGetRoutineByID(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/routines/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.Routine{
				ID: id, Name: "Pull Day",
				Exercises: []models.RoutineExercise{
					{DayOfWeek: 2, OrderInDay: 1, TargetSets: 3, Exercise: models.Exercise{Name: "Row"}},
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	routine, err := client.GetRoutine(context.Background(), id, 1)
	if err != nil {
		t.Fatal(err)
	}
	if routine.Name != "Pull Day" || len(routine.Exercises) != 1 {
		t.Errorf("routine = %+v", routine)
	}
}

// TestListActiveSessions verifies the sessions endpoint decode.
func TestListActiveSessions(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []models.ActiveWorkoutSession{
				{ID: uuid.New(), RoutineName: "Legs", CurrentSet: 2},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	sessions, err := client.ListActiveSessions(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].CurrentSet != 2 {
		t.Errorf("sessions = %+v", sessions)
	}
}

// TestHTTPClientErrorStatus verifies non-200 responses surface as errors
// including the body.
func TestHTTPClientErrorStatus(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/routines": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	if _, err := client.ListRoutines(context.Background(), 1); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
