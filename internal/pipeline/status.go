package pipeline

import (
	"sync"
	"time"

	"github.com/snarg/mallok/internal/task"
)

type statusEntry struct {
	userID    string
	audioPath string
	status    task.Status
	errMsg    string
	updatedAt time.Time
}

// LiveState is a task's in-process status and, once it failed, the message
// shown to its owner.
type LiveState struct {
	Status task.Status
	Error  string
}

// StatusStore is the in-process map of live task states. Transitions only
// move forward; terminal entries stay until pruned.
type StatusStore struct {
	mu      sync.RWMutex
	entries map[string]statusEntry
	now     func() time.Time
}

func NewStatusStore() *StatusStore {
	return &StatusStore{entries: make(map[string]statusEntry), now: time.Now}
}

// Init registers a new task as queued. It reports false if id is taken.
func (s *StatusStore) Init(id, userID, audioPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = statusEntry{
		userID:    userID,
		audioPath: audioPath,
		status:    task.StatusQueued,
		updatedAt: s.now(),
	}
	return true
}

// Advance moves id to next if that is a forward transition.
func (s *StatusStore) Advance(id string, next task.Status) bool {
	return s.transition(id, next, "")
}

// Fail moves id to the error state and keeps msg for status queries.
func (s *StatusStore) Fail(id, msg string) bool {
	return s.transition(id, task.StatusError, msg)
}

func (s *StatusStore) transition(id string, next task.Status, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.status.CanAdvance(next) {
		return false
	}
	e.status = next
	e.errMsg = msg
	e.updatedAt = s.now()
	s.entries[id] = e
	return true
}

// Get returns the status of id as seen by userID. Tasks owned by someone
// else are reported as missing.
func (s *StatusStore) Get(id, userID string) (task.Status, bool) {
	st, ok := s.Lookup(id, userID)
	return st.Status, ok
}

// Lookup is Get plus the captured error message.
func (s *StatusStore) Lookup(id, userID string) (LiveState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.userID != userID {
		return LiveState{}, false
	}
	return LiveState{Status: e.status, Error: e.errMsg}, true
}

// Remove drops id regardless of state.
func (s *StatusStore) Remove(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// PruneTerminal removes finished entries last updated before cutoff and
// returns how many were dropped. Their durable records remain queryable.
func (s *StatusStore) PruneTerminal(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if e.status.Terminal() && e.updatedAt.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// InUse reports whether path is the source audio of an unfinished task.
func (s *StatusStore) InUse(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.audioPath == path && !e.status.Terminal() {
			return true
		}
	}
	return false
}

// Counts returns the number of entries per status.
func (s *StatusStore) Counts() map[task.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[task.Status]int)
	for _, e := range s.entries {
		out[e.status]++
	}
	return out
}
