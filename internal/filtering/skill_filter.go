package filtering

import (
	"context"

	"github.com/wecollab/matchmaker/internal/profile"
)

type skillFilter struct {
	toggle
	skill string
}

// NewSkill creates a filter that keeps candidates with at least one skill
// containing the given text, case-insensitively.
func NewSkill(skill string) Filter {
	f := &skillFilter{skill: profile.NormalizeTag(skill)}
	if f.skill == "" {
		f.Disable(notRequestedMsg)
	}
	return f
}

func (f *skillFilter) Name() string { return "skill" }

func (f *skillFilter) Validate() error { return nil }

func (f *skillFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	next, step := keepOnly(c, func(p *profile.UserProfile) bool {
		return p.Skills.ContainsSubstring(f.skill)
	})
	return next, step, nil
}

func (f *skillFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"skill": f.skill})
}
