package cheque

import (
	"fmt"
	"sync"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/google/uuid"
)

// session serializes access to one document. Every read and write of the
// aggregate happens with mu held; remote calls are made with it released.
type session struct {
	mu       sync.Mutex
	id       uuid.UUID
	entry    *cheque.ChequeEntry
	fieldRev map[string]uint64
	// busy names the remote operation running while mu is released
	busy string
}

// ensureIdle rejects work while a submit or cancel is talking to the host
func (s *session) ensureIdle() error {
	if s.busy == "" {
		return nil
	}
	name := s.id.String()
	if s.entry != nil {
		name = s.entry.Name
	}
	return fmt.Errorf("cheque entry %s is being %s: %w", name, s.busy, shared.ErrInvalidState)
}

// bumpField records a new edit of a parent field and returns its revision
func (s *session) bumpField(field string) uint64 {
	s.fieldRev[field]++
	return s.fieldRev[field]
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[uuid.UUID]*session)}
}

// get returns the session for id, creating an empty one if needed
func (r *sessionRegistry) get(id uuid.UUID) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &session{id: id, fieldRev: make(map[string]uint64)}
		r.sessions[id] = s
	}
	return s
}

// evict drops the cached session so the next access reloads from storage
func (r *sessionRegistry) evict(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// holds reports whether s is still the registered session for its document
func (r *sessionRegistry) holds(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[s.id] == s
}

func (r *sessionRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
