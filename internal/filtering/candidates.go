package filtering

import "github.com/wecollab/matchmaker/internal/profile"

// Candidates is the working list a pipeline narrows down. It owns its slice
// but only references the profiles.
type Candidates struct {
	Items []*profile.UserProfile
}

// NewCandidates copies the input and drops nil entries and repeated ids,
// keeping the first occurrence.
func NewCandidates(profiles []*profile.UserProfile) *Candidates {
	seen := make(map[string]struct{}, len(profiles))
	items := make([]*profile.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		items = append(items, p)
	}
	return &Candidates{Items: items}
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Candidates) FindByID(id string) *profile.UserProfile {
	for _, p := range c.Items {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// IDs returns candidate ids in list order.
func (c *Candidates) IDs() []string {
	ids := make([]string, 0, c.Len())
	for _, p := range c.Items {
		ids = append(ids, p.ID)
	}
	return ids
}

// Exclude removes every candidate for which drop returns true and returns the
// removed ids. Order of the remaining candidates is preserved.
func (c *Candidates) Exclude(drop func(*profile.UserProfile) bool) []string {
	var excluded []string
	kept := c.Items[:0:0]
	for _, p := range c.Items {
		if drop(p) {
			excluded = append(excluded, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	c.Items = kept
	return excluded
}

// Keep removes every candidate for which keep returns false.
func (c *Candidates) Keep(keep func(*profile.UserProfile) bool) []string {
	return c.Exclude(func(p *profile.UserProfile) bool { return !keep(p) })
}
