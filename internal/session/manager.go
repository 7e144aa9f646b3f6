package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Manager hands out one Orchestrator per (user, routine) pair so repeated
// HTTP requests operate on the same in-memory state and serialize on its
// mutex. Cross-process access to the same session is not coordinated here;
// the store remains last-write-wins for that case.
type Manager struct {
	mu    sync.Mutex
	store Store
	log   *slog.Logger
	live  map[string]*Orchestrator
}

// NewManager creates a Manager backed by the given store.
func NewManager(store Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log, live: make(map[string]*Orchestrator)}
}

// ForRoutine returns the orchestrator for the pair, creating it on first
// use.
func (m *Manager) ForRoutine(userID int, routineID uuid.UUID) *Orchestrator {
	key := orchKey(userID, routineID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.live[key]; ok {
		return o
	}
	o := New(m.store, userID, m.log)
	m.live[key] = o
	return o
}

// Release drops the orchestrator for the pair, typically after Complete so
// a later execution starts from a clean instance.
func (m *Manager) Release(userID int, routineID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, orchKey(userID, routineID))
}

func orchKey(userID int, routineID uuid.UUID) string {
	return fmt.Sprintf("%d/%s", userID, routineID)
}
