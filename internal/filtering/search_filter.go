package filtering

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/wecollab/matchmaker/internal/profile"
)

const maxSearchLength = 200

type searchFilter struct {
	toggle
	query string
}

// NewSearch creates a free text filter over display name, bio, skills and
// interests. A candidate is kept when any of those contains the query.
func NewSearch(query string) Filter {
	f := &searchFilter{query: strings.TrimSpace(query)}
	if f.query == "" {
		f.Disable(notRequestedMsg)
	}
	return f
}

func (f *searchFilter) Name() string { return "search" }

func (f *searchFilter) Validate() error {
	if utf8.RuneCountInString(f.query) > maxSearchLength {
		return fmt.Errorf("query is longer than %d characters", maxSearchLength)
	}
	return nil
}

func (f *searchFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	fold := cases.Fold()
	needle := fold.String(f.query)

	next, step := keepOnly(c, func(p *profile.UserProfile) bool {
		if strings.Contains(fold.String(p.DisplayName), needle) ||
			strings.Contains(fold.String(p.Bio), needle) {
			return true
		}
		return p.Skills.ContainsSubstring(needle) || p.Interests.ContainsSubstring(needle)
	})
	return next, step, nil
}

func (f *searchFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"query": f.query})
}
