package ai

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/scoring"
)

// Explanation is a short natural language account of why two students match.
type Explanation struct {
	Summary     string   `json:"summary,omitempty"`
	Icebreakers []string `json:"icebreakers,omitempty"`
	Model       string   `json:"model,omitempty"`
	Error       string   `json:"error,omitempty"`
	Raw         string   `json:"-"`
}

// Explainer describes a scored match. It never changes the score.
type Explainer interface {
	Explain(ctx context.Context, requester *profile.UserProfile, match scoring.Match) (*Explanation, error)
}

// ExplainAll explains every match with at most workers calls in flight. A
// failed explanation is logged and returned with its Error set so one bad
// response does not hide the rest. The result is index-aligned with matches.
func ExplainAll(ctx context.Context, e Explainer, requester *profile.UserProfile, matches []scoring.Match, workers int, logger *zap.Logger) []*Explanation {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]*Explanation, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, m := range matches {
		g.Go(func() error {
			explanation, err := e.Explain(gctx, requester, m)
			if err != nil {
				logger.Warn("AI explanation failed",
					zap.String("candidate_id", m.Candidate.ID),
					zap.Error(err),
				)
				explanation = &Explanation{Error: err.Error()}
			}
			out[i] = explanation
			return nil
		})
	}
	_ = g.Wait()

	return out
}
