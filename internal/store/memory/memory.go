package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wecollab/matchmaker/internal/profile"
)

type entry struct {
	profile *profile.UserProfile
	active  bool
}

// Store keeps profiles in process memory. Profiles are cloned on the way in
// and out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// New creates a store holding the given profiles as active.
func New(profiles ...*profile.UserProfile) *Store {
	s := &Store{entries: make(map[string]*entry, len(profiles))}
	s.upsert(profiles)
	return s
}

func (s *Store) ListActiveProfiles(ctx context.Context) ([]*profile.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*profile.UserProfile, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		if !e.active {
			continue
		}
		out = append(out, e.profile.Clone())
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*profile.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}
	return e.profile.Clone(), nil
}

// All returns every profile with its active flag, in insertion order.
func (s *Store) All() ([]*profile.UserProfile, map[string]bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*profile.UserProfile, 0, len(s.order))
	active := make(map[string]bool, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		out = append(out, e.profile.Clone())
		active[id] = e.active
	}
	return out, active
}

func (s *Store) UpsertProfiles(ctx context.Context, profiles []*profile.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.upsert(profiles)
	return nil
}

func (s *Store) upsert(profiles []*profile.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range profiles {
		if p == nil {
			continue
		}
		if _, ok := s.entries[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.entries[p.ID] = &entry{profile: p.Clone(), active: true}
	}
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}
	e.active = false
	return nil
}

func (s *Store) Close() error { return nil }
