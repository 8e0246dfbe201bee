package filtering

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/profile"
)

// ErrInvalidRequester is returned when the requester is not part of the profiles being filtered.
var ErrInvalidRequester = errors.New("invalid requester")

// Filter represents a single filtering step applied to candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int `json:"initial"`
	Dropped int `json:"dropped"`
	Left    int `json:"left"`
}

// StepReport is a Step tagged with the filter that produced it.
type StepReport struct {
	Name string `json:"name"`
	Step
}

// Criteria holds the optional hard constraints of a request. Empty values
// disable the corresponding filter.
type Criteria struct {
	University string `json:"university,omitempty" form:"university" validate:"max=100"`
	Skill      string `json:"skill,omitempty" form:"skill" validate:"max=100"`
	Role       string `json:"role,omitempty" form:"role" validate:"max=100"`
	Search     string `json:"search,omitempty" form:"q" validate:"max=200"`
	OnlineOnly bool   `json:"online_only,omitempty" form:"online_only"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Filtering runs an ordered list of filters.
type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// Pipeline returns the standard filter chain for a request: requester
// exclusion first, then every constraint in criteria combined with logical AND.
func Pipeline(requesterID string, c Criteria) []Filter {
	return append([]Filter{NewSelf(requesterID)}, CriteriaFilters(c)...)
}

// CriteriaFilters returns the steps built from criteria alone, in pipeline order.
func CriteriaFilters(c Criteria) []Filter {
	return []Filter{
		NewUniversity(c.University),
		NewSkill(c.Skill),
		NewRole(c.Role),
		NewOnlineOnly(c.OnlineOnly),
		NewSearch(c.Search),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// RunFilters executes the filters sequentially over the snapshot and returns
// the surviving candidates. The snapshot is never modified. The requester
// must be present in the snapshot, otherwise ErrInvalidRequester is returned
// before any step runs.
func (f *Filtering) RunFilters(ctx context.Context, requesterID string, all *profile.Snapshot) (*Candidates, []StepReport, error) {
	if all.FindByID(requesterID) == nil {
		return nil, nil, fmt.Errorf("%w: %q is not in the profile snapshot", ErrInvalidRequester, requesterID)
	}

	for _, step := range f.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	candidates := NewCandidates(all.Items())
	reports := make([]StepReport, 0, len(f.steps))

	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		next, info, err := step.Apply(ctx, candidates)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		reports = append(reports, StepReport{Name: step.Name(), Step: info})
		candidates = next
	}

	return candidates, reports, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
