// Package store defines the profile store consumed by the matchmaking engine
// and opens the configured backend.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/wecollab/matchmaker/internal/profile"
)

// ErrReadOnly is returned by backends that cannot be written to.
var ErrReadOnly = errors.New("profile store is read-only")

// Store is the read side every backend provides.
type Store interface {
	// ListActiveProfiles returns a point-in-time copy of the active profiles.
	// Later writes never change a returned slice.
	ListActiveProfiles(ctx context.Context) ([]*profile.UserProfile, error)
	// GetProfile returns any known profile, active or not, or profile.ErrNotFound.
	GetProfile(ctx context.Context, id string) (*profile.UserProfile, error)
}

// Writer changes the profile collection.
type Writer interface {
	// UpsertProfiles inserts or replaces profiles and marks them active.
	UpsertProfiles(ctx context.Context, profiles []*profile.UserProfile) error
	// Deactivate hides a profile from ListActiveProfiles.
	Deactivate(ctx context.Context, id string) error
}

// Backend is an opened store.
type Backend interface {
	Store
	Writer
	io.Closer
}
