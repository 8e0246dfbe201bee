package filtering

import (
	"context"

	"github.com/wecollab/matchmaker/internal/profile"
)

type onlineOnlyFilter struct {
	toggle
}

// NewOnlineOnly creates a filter that keeps online candidates only.
func NewOnlineOnly(enabled bool) Filter {
	f := &onlineOnlyFilter{}
	if !enabled {
		f.Disable(notRequestedMsg)
	}
	return f
}

func (f *onlineOnlyFilter) Name() string { return "online_only" }

func (f *onlineOnlyFilter) Validate() error { return nil }

func (f *onlineOnlyFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	next, step := keepOnly(c, func(p *profile.UserProfile) bool { return p.Online })
	return next, step, nil
}

func (f *onlineOnlyFilter) Status() Status {
	return f.status(f.Name(), nil)
}
