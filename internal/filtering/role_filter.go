package filtering

import (
	"context"

	"github.com/wecollab/matchmaker/internal/profile"
)

type roleFilter struct {
	toggle
	role string
}

// NewRole creates a filter that keeps candidates looking for the given role.
// Roles are tags, so the match is exact after normalization.
func NewRole(role string) Filter {
	f := &roleFilter{role: profile.NormalizeTag(role)}
	if f.role == "" {
		f.Disable(notRequestedMsg)
	}
	return f
}

func (f *roleFilter) Name() string { return "role" }

func (f *roleFilter) Validate() error { return nil }

func (f *roleFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	next, step := keepOnly(c, func(p *profile.UserProfile) bool {
		return p.LookingFor.Contains(f.role)
	})
	return next, step, nil
}

func (f *roleFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"role": f.role})
}
