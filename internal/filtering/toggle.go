package filtering

import "github.com/wecollab/matchmaker/internal/profile"

const notRequestedMsg = "not requested"

// toggle carries the enabled state shared by every step.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{
		Name:    name,
		Enabled: t.IsEnabled(),
		Reason:  t.reason,
		Details: details,
	}
}

// keepOnly narrows c in place and reports the counts.
func keepOnly(c *Candidates, keep func(*profile.UserProfile) bool) (*Candidates, Step) {
	initial := c.Len()
	dropped := c.Keep(keep)
	return c, Step{Initial: initial, Dropped: len(dropped), Left: c.Len()}
}
