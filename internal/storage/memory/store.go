// Package memory provides an ephemeral, thread-safe, in-memory
// implementation of core.Store.
//
// It backs DB_DRIVER=memory for local demos and is the store used by the
// service and handler tests. Nothing survives a restart.
//
// Registrations are kept in insertion order behind a single RWMutex; reads
// copy the slices they return so callers can never mutate stored rows.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/creative-hub/internal/core"
)

// Store is an in-memory core.Store.
type Store struct {
	mu      sync.RWMutex
	regs    []core.Registration
	mobiles map[string]uuid.UUID
	audit   []core.AuditEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		mobiles: make(map[string]uuid.UUID),
	}
}

var _ core.Store = (*Store)(nil)

// List returns every registration, newest first.
func (s *Store) List(ctx context.Context) ([]core.Registration, error) {
	return s.filter(func(core.Registration) bool { return true }), nil
}

// ListByGroup returns the registrations of group, newest first.
func (s *Store) ListByGroup(ctx context.Context, group string) ([]core.Registration, error) {
	return s.filter(func(r core.Registration) bool { return r.GroupName == group }), nil
}

func (s *Store) filter(keep func(core.Registration) bool) []core.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Registration, 0, len(s.regs))
	for i := len(s.regs) - 1; i >= 0; i-- {
		if keep(s.regs[i]) {
			out = append(out, clone(s.regs[i]))
		}
	}
	slices.SortStableFunc(out, func(a, b core.Registration) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.regs)), nil
}

func (s *Store) MobileExists(ctx context.Context, mobile string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.mobiles[mobile]
	return ok, nil
}

// Insert stores reg. A mobile number already present is rejected with
// core.ErrMobileRegistered.
func (s *Store) Insert(ctx context.Context, reg core.Registration) (core.Registration, error) {
	if err := ctx.Err(); err != nil {
		return core.Registration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.mobiles[reg.MobileNumber]; dup {
		return core.Registration{}, core.ErrMobileRegistered
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	if reg.UpdatedAt.IsZero() {
		reg.UpdatedAt = reg.CreatedAt
	}

	stored := clone(reg)
	s.regs = append(s.regs, stored)
	s.mobiles[reg.MobileNumber] = reg.ID
	return clone(stored), nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	return s.DeleteMany(ctx, []uuid.UUID{id})
}

func (s *Store) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.regs[:0]
	var removed int64
	for _, r := range s.regs {
		if drop[r.ID] {
			delete(s.mobiles, r.MobileNumber)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.regs = kept
	return removed, nil
}

func (s *Store) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, len(s.regs))
	for i, r := range s.regs {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *Store) InsertAudit(ctx context.Context, entry core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// ListAudit returns up to limit entries, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.AuditEntry, 0, min(limit, len(s.audit)))
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}

func (s *Store) PurgeAudit(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.audit[:0]
	var purged int64
	for _, e := range s.audit {
		if e.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	s.audit = kept
	return purged, nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

func clone(r core.Registration) core.Registration {
	r.Interests = slices.Clone(r.Interests)
	r.Software = slices.Clone(r.Software)
	return r
}
