package sessions

import "sync"

// Store is a concurrency-safe registry of active call sessions keyed by
// call SID. It is the only mutable state shared between bridges; every
// operation is atomic with respect to the others, so two stream-start
// events for the same call can never create two sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for callSID, creating it if absent.
// The second return reports whether a new session was created.
func (s *Store) GetOrCreate(callSID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[callSID]; ok {
		return sess, false
	}
	sess := newSession(callSID)
	s.sessions[callSID] = sess
	return sess, true
}

// Get returns the session for callSID, if present.
func (s *Store) Get(callSID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callSID]
	return sess, ok
}

// Put inserts or replaces the session for callSID.
func (s *Store) Put(callSID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[callSID] = sess
}

// Delete removes the session for callSID. Deleting an absent key is a no-op.
func (s *Store) Delete(callSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callSID)
}

// Len reports the number of active sessions, for diagnostics only.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
