package auction

import (
	"sync"

	ncerr "bidmaster/internal/errors"
	"bidmaster/internal/session"
)

// Roster is the set of currently connected sessions.  It refuses new
// members while sealed, which is its state between rounds.
type Roster struct {
	mu      sync.RWMutex
	open    bool
	members map[*session.Session]struct{}
}

// NewRoster returns an empty, sealed roster.
func NewRoster() *Roster {
	return &Roster{members: make(map[*session.Session]struct{})}
}

// Open lets sessions join.
func (r *Roster) Open() {
	r.mu.Lock()
	r.open = true
	r.mu.Unlock()
}

// Seal stops admissions and removes every member, returning them so
// the caller can close them outside any lock.
func (r *Roster) Seal() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.open = false
	out := make([]*session.Session, 0, len(r.members))
	for s := range r.members {
		out = append(out, s)
	}
	r.members = make(map[*session.Session]struct{})
	return out
}

// Add registers s.  It fails with ErrNotRunning while sealed.
func (r *Roster) Add(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return ncerr.ErrNotRunning
	}
	r.members[s] = struct{}{}
	return nil
}

// Remove drops s and reports whether it was a member.
func (r *Roster) Remove(s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[s]; !ok {
		return false
	}
	delete(r.members, s)
	return true
}

// Snapshot returns the current members.  The slice is the caller's.
func (r *Roster) Snapshot() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*session.Session, 0, len(r.members))
	for s := range r.members {
		out = append(out, s)
	}
	return out
}
