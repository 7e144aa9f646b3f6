package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"tailscale.com/client/local"
)

// Datastore is what the handlers need beyond the session orchestrators:
// routine authoring/reads and identity resolution. *storage.DB satisfies
// it; tests substitute a fake.
type Datastore interface {
	CreateRoutine(ctx context.Context, r models.Routine) (*models.Routine, error)
	GetRoutine(ctx context.Context, routineID uuid.UUID, userID int) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID int) ([]storage.RoutineSummary, error)
	ListActiveSessions(ctx context.Context, userID int) ([]models.ActiveWorkoutSession, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Datastore
	sessions *session.Manager
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	ts       *local.Client
}

// New creates a new Server with all routes configured.
func New(db Datastore, sessions *session.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		sessions: sessions,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale enables tailnet identity resolution. Without it every
// request runs as the local dev user.
func (s *Server) SetTailscale(lc *local.Client) {
	s.ts = lc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		// Routine authoring (API key required for writes)
		r.Get("/routines", s.handleListRoutines)
		r.Get("/routines/{routineID}", s.handleGetRoutine)
		r.With(APIKeyAuth(s.apiKey)).Post("/routines", s.handleCreateRoutine)

		// Rest-time recommendation (used at authoring time)
		r.Get("/rest-time", s.handleRestTime)

		// Session execution
		r.Get("/sessions", s.handleListSessions)
		r.Route("/routines/{routineID}/session", func(r chi.Router) {
			r.Post("/", s.handleInitSession)
			r.Get("/", s.handleGetSession)
			r.Post("/sets", s.handleCompleteSet)
			r.Post("/advance", s.handleAdvance)
			r.Post("/rest", s.handleStartRest)
			r.Delete("/rest", s.handleEndRest)
			r.Post("/pause", s.handlePause)
			r.Post("/complete", s.handleCompleteSession)
		})
	})
}
