package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// sessionResponse is the common payload of session operations: the
// confirmed record, derived progress, and the rest recommendation the UI
// applies when it decides to start a rest period.
type sessionResponse struct {
	Session     *models.ActiveWorkoutSession `json:"session"`
	Progress    session.Progress             `json:"progress"`
	RestSeconds int                          `json:"rest_seconds"`
	ProgressURL string                       `json:"progress_url"`
}

func (s *Server) sessionPayload(o *session.Orchestrator) sessionResponse {
	return sessionResponse{
		Session:     o.Session(),
		Progress:    o.Progress(),
		RestSeconds: o.RestForCurrent(),
		ProgressURL: o.ProgressURL(),
	}
}

// orchestratorFor resolves the routine id from the URL and returns the
// per-(user, routine) orchestrator.
func (s *Server) orchestratorFor(w http.ResponseWriter, r *http.Request) (*session.Orchestrator, uuid.UUID, int, bool) {
	routineID, err := uuid.Parse(chi.URLParam(r, "routineID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine ID"})
		return nil, uuid.Nil, 0, false
	}
	uid := userIDFromContext(r)
	return s.sessions.ForRoutine(uid, routineID), routineID, uid, true
}

func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	o, routineID, uid, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Day int `json:"day"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}
	day := req.Day
	if day == 0 {
		day = isoWeekday(time.Now())
	}
	if day < 1 || day > 7 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be 1-7"})
		return
	}

	routine, err := s.db.GetRoutine(r.Context(), routineID, uid)
	if err != nil {
		if errors.Is(err, storage.ErrRoutineNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if _, err := o.Initialize(r.Context(), routine.ID, routine.Name, routine.DayExercises(day)); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	o, _, _, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}
	if o.Session() == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	o, _, _, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Reps   int      `json:"reps"`
		Weight *float64 `json:"weight"`
		Notes  string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Reps <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reps must be positive"})
		return
	}

	if err := o.CompleteSet(r.Context(), req.Reps, req.Weight, req.Notes); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	o, _, _, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}

	save := true
	if r.Body != nil && r.ContentLength != 0 {
		var req struct {
			SaveCompleted *bool `json:"save_completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
		if req.SaveCompleted != nil {
			save = *req.SaveCompleted
		}
	}

	if err := o.NextExercise(r.Context(), save); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	o, _, _, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Seconds int `json:"seconds"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}
	seconds := req.Seconds
	if seconds <= 0 {
		seconds = o.RestForCurrent()
	}

	if err := o.StartRest(r.Context(), seconds); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handleEndRest(w http.ResponseWriter, r *http.Request) {
	o, _, _, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}
	if err := o.EndRest(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	o, _, _, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}
	if err := o.Pause(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionPayload(o))
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	o, routineID, uid, ok := s.orchestratorFor(w, r)
	if !ok {
		return
	}
	logged := o.Progress().CompletedCount
	if err := o.Complete(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.sessions.Release(uid, routineID)
	writeJSON(w, http.StatusOK, map[string]any{
		"completed":        true,
		"exercises_logged": logged,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	sessions, err := s.db.ListActiveSessions(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// writeSessionError maps the session error taxonomy onto HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNoActiveSession):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrNoExercises), errors.Is(err, session.ErrOutOfRange):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// isoWeekday maps Go's Sunday-first weekday onto the routine's 1=Monday …
// 7=Sunday convention.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
