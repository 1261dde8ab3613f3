// Package identity owns the single authoritative mapping from "the person I
// am chatting with" to a stable conversation key. Every send and every push
// filter goes through the key resolved here, so one logical conversation can
// never split across two keys.
package identity

import (
	"context"
	"errors"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/history"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/session"
)

// StaffFinder is the lazy "any available staff member" lookup.
type StaffFinder interface {
	FindAnyStaff(ctx context.Context) (*history.StaffRef, error)
}

type Resolver struct {
	finder   StaffFinder
	sessions *session.Store

	key      uint64
	resolved bool
}

func NewResolver(finder StaffFinder, sessions *session.Store) *Resolver {
	return &Resolver{finder: finder, sessions: sessions}
}

// Resolve produces the shopper's conversation key. A persisted session wins;
// otherwise any available staff member is looked up, and when none is known
// the generic staff sentinel is used so sends can still be routed.
func (r *Resolver) Resolve(ctx context.Context) (uint64, error) {
	if r.resolved {
		return r.key, nil
	}
	if key, ok := r.sessions.Resume(); ok {
		r.key = key
		r.resolved = true
		return r.key, nil
	}
	staff, err := r.finder.FindAnyStaff(ctx)
	switch {
	case err == nil:
		r.key = staff.ID
	case errors.Is(err, history.ErrNotFound):
		r.key = chat.StaffSentinel
	default:
		return 0, err
	}
	r.resolved = true
	return r.key, nil
}

// Rebind switches to a concrete staff id once one becomes known (the first
// staff reply after resolving to the sentinel). The persisted session is
// updated in the same step so the stored key never desynchronizes from the
// key used for sends.
func (r *Resolver) Rebind(concreteID uint64) error {
	if concreteID == chat.StaffSentinel || (r.resolved && r.key == concreteID) {
		return nil
	}
	r.key = concreteID
	r.resolved = true
	if _, saved := r.sessions.Resume(); saved {
		return r.sessions.Save(concreteID)
	}
	return nil
}

// Key reports the currently resolved key without triggering a lookup.
func (r *Resolver) Key() (uint64, bool) {
	return r.key, r.resolved
}

// Invalidate forgets the resolved key, forcing the next Resolve to start
// over. Used when a resumed conversation turns out to be gone.
func (r *Resolver) Invalidate() {
	r.key = 0
	r.resolved = false
}
