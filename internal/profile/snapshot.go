package profile

import (
	"fmt"
	"time"
)

// Snapshot is an immutable point-in-time view of the profile collection.
// A single query reads one snapshot from start to end.
type Snapshot struct {
	items   []*UserProfile
	byID    map[string]*UserProfile
	takenAt time.Time
}

// NewSnapshot builds a snapshot. The profiles slice is copied, the profiles
// themselves are shared and must not be modified afterwards.
func NewSnapshot(profiles []*UserProfile, takenAt time.Time) (*Snapshot, error) {
	s := &Snapshot{
		items:   make([]*UserProfile, 0, len(profiles)),
		byID:    make(map[string]*UserProfile, len(profiles)),
		takenAt: takenAt.UTC(),
	}

	for _, p := range profiles {
		if p == nil {
			continue
		}
		if _, ok := s.byID[p.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		s.byID[p.ID] = p
		s.items = append(s.items, p)
	}

	return s, nil
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the profiles in store order. The returned slice is a copy.
func (s *Snapshot) Items() []*UserProfile {
	if s == nil {
		return nil
	}
	return append([]*UserProfile(nil), s.items...)
}

func (s *Snapshot) FindByID(id string) *UserProfile {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// TakenAt is the instant the snapshot was read. Time dependent scoring is
// measured against it.
func (s *Snapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.takenAt
}

// WithProfile returns a new snapshot that also contains p. If a profile with
// the same id exists the receiver is returned unchanged.
func (s *Snapshot) WithProfile(p *UserProfile) *Snapshot {
	if p == nil || s.FindByID(p.ID) != nil {
		return s
	}

	items := append(s.Items(), p)
	next, err := NewSnapshot(items, s.TakenAt())
	if err != nil {
		// unreachable: ids were checked above
		return s
	}
	return next
}

// IDs returns profile ids in store order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, s.Len())
	for _, p := range s.Items() {
		ids = append(ids, p.ID)
	}
	return ids
}
