package filtering

import (
	"context"
	"errors"

	"github.com/wecollab/matchmaker/internal/profile"
)

type selfFilter struct {
	toggle
	requesterID string
}

// NewSelf creates a filter that removes the requester from their own results.
func NewSelf(requesterID string) Filter {
	return &selfFilter{requesterID: requesterID}
}

func (f *selfFilter) Name() string { return "self" }

// Disable is a no-op. A requester is never a candidate for themselves.
func (f *selfFilter) Disable(string) {}

func (f *selfFilter) Validate() error {
	if f.requesterID == "" {
		return errors.New("requester id is required")
	}
	return nil
}

func (f *selfFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	next, step := keepOnly(c, func(p *profile.UserProfile) bool {
		return p.ID != f.requesterID
	})
	return next, step, nil
}

func (f *selfFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"requester_id": f.requesterID})
}
