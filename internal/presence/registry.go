// Package presence tracks which users are currently online and their
// matching attributes. The registry is a lifecycle-scoped instance
// injected into the matcher, never process-wide state, so independent
// test instances can run without cross-contamination.
package presence

import (
	"sync"
	"time"

	"vibelink/backend/internal/errs"
)

// Availability of a registered user.
const (
	StatusIdle    = "idle"
	StatusWaiting = "waiting"
	StatusInCall  = "in_call"
)

// Entry holds the matching attributes of one online user. Owned
// exclusively by the registry; callers get copies.
type Entry struct {
	UserID          string
	Gender          string
	PreferredGender string
	IsPremium       bool
	Status          string
	LastActive      time.Time
}

// Registry is the single owner of presence state. All mutations are
// serialized behind one mutex so concurrent join/leave from many
// sockets cannot lose updates.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	staleAfter time.Duration
}

// NewRegistry creates a registry evicting entries whose last heartbeat
// is older than staleAfter.
func NewRegistry(staleAfter time.Duration) *Registry {
	return &Registry{
		entries:    make(map[string]*Entry),
		staleAfter: staleAfter,
	}
}

// Join registers a user. Returns errs.ErrDuplicateUser if the ID is
// already present; the old entry must Leave first.
func (r *Registry) Join(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictStaleLocked(time.Now())

	if _, ok := r.entries[e.UserID]; ok {
		return errs.ErrDuplicateUser
	}

	e.Status = StatusIdle
	e.LastActive = time.Now()
	r.entries[e.UserID] = &e
	return nil
}

// Leave removes a user. Removing an absent user is a no-op.
func (r *Registry) Leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

// Heartbeat refreshes LastActive. Returns false when the user is not
// registered (e.g. already evicted as stale).
func (r *Registry) Heartbeat(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return false
	}
	e.LastActive = time.Now()
	return true
}

// Get returns a copy of the user's entry.
func (r *Registry) Get(userID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// SetStatus updates a user's availability. Only the matcher mutates
// match status; the hub resets to idle on session end.
func (r *Registry) SetStatus(userID, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return false
	}
	e.Status = status
	return true
}

// UpdatePreference records the gender preference the user is currently
// matching with. The matcher sets it on admission to the waiting pool.
func (r *Registry) UpdatePreference(userID, preferredGender string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return false
	}
	e.PreferredGender = preferredGender
	return true
}

// ListWaiting returns copies of all entries currently waiting for a
// match. Stale entries are evicted first, so nothing dead lingers past
// the next scan.
func (r *Registry) ListWaiting() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictStaleLocked(time.Now())

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Status == StatusWaiting {
			out = append(out, *e)
		}
	}
	return out
}

// Len returns the number of registered users, after evicting stale ones.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictStaleLocked(time.Now())
	return len(r.entries)
}

// evictStaleLocked drops entries whose LastActive exceeds the staleness
// threshold. Caller must hold r.mu.
func (r *Registry) evictStaleLocked(now time.Time) {
	if r.staleAfter <= 0 {
		return
	}
	for id, e := range r.entries {
		if now.Sub(e.LastActive) > r.staleAfter {
			delete(r.entries, id)
		}
	}
}
