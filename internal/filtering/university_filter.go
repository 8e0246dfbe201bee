package filtering

import (
	"context"
	"strings"

	"github.com/wecollab/matchmaker/internal/profile"
)

type universityFilter struct {
	toggle
	university string
	key        string
}

// NewUniversity creates a filter that keeps candidates from the given university.
// The comparison uses the same case folding as tags.
func NewUniversity(university string) Filter {
	f := &universityFilter{university: strings.TrimSpace(university), key: profile.NormalizeTag(university)}
	if f.key == "" {
		f.Disable(notRequestedMsg)
	}
	return f
}

func (f *universityFilter) Name() string { return "university" }

func (f *universityFilter) Validate() error { return nil }

func (f *universityFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	next, step := keepOnly(c, func(p *profile.UserProfile) bool {
		return profile.NormalizeTag(p.University) == f.key
	})
	return next, step, nil
}

func (f *universityFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"university": f.university})
}
