package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/ai"
	"github.com/wecollab/matchmaker/internal/logger"
	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/scoring"
)

const (
	provider            = "gemini"
	defaultMaxLogLength = 200
	maxIcebreakers      = 3
)

//go:embed prompt.md
var systemPrompt string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Explainer turns scored matches into short explanations.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExplainer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Explainer{
		generator: generator,
		logger:    logger.WithAIFields(log, provider, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

type candidateView struct {
	DisplayName string   `json:"display_name"`
	University  string   `json:"university,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Skills      []string `json:"skills"`
	Interests   []string `json:"interests"`
	LookingFor  []string `json:"looking_for"`
	Online      bool     `json:"online"`
}

type matchView struct {
	Score               int               `json:"score"`
	Quality             scoring.Quality   `json:"quality"`
	Breakdown           scoring.Breakdown `json:"breakdown"`
	CommonInterests     []string          `json:"common_interests"`
	ComplementarySkills []string          `json:"complementary_skills"`
}

func view(p *profile.UserProfile) candidateView {
	return candidateView{
		DisplayName: p.DisplayName,
		University:  p.University,
		Bio:         p.Bio,
		Skills:      p.Skills.Labels(),
		Interests:   p.Interests.Labels(),
		LookingFor:  p.LookingFor.Labels(),
		Online:      p.Online,
	}
}

func (e *Explainer) Explain(ctx context.Context, requester *profile.UserProfile, m scoring.Match) (*ai.Explanation, error) {
	if requester == nil {
		return nil, errors.New("requester is required")
	}
	if m.Candidate == nil {
		return nil, errors.New("match candidate is required")
	}

	payload, err := json.MarshalIndent(map[string]any{
		"requester": view(requester),
		"candidate": view(m.Candidate),
		"match": matchView{
			Score:               m.Score,
			Quality:             m.Quality,
			Breakdown:           m.Breakdown,
			CommonInterests:     m.CommonInterests,
			ComplementarySkills: m.ComplementarySkills,
		},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal match payload: %w", err)
	}
	message := string(payload)

	e.logger.Debug("gemini generate content request",
		zap.String("candidate_id", m.Candidate.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", logger.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini generate content response",
		zap.String("candidate_id", m.Candidate.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)

	explanation, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	explanation.Model = e.generator.Model()
	explanation.Raw = raw
	return explanation, nil
}

func parseResponse(raw string) (*ai.Explanation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	summary := coerceString(data["summary"])
	if summary == "" {
		return nil, errors.New("gemini response has no summary")
	}

	return &ai.Explanation{
		Summary:     summary,
		Icebreakers: coerceStrings(data["icebreakers"], maxIcebreakers),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// coerceStrings accepts a list or a single string and keeps at most limit
// non-empty entries.
func coerceStrings(v any, limit int) []string {
	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	case string:
		items = []any{val}
	default:
		return nil
	}

	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
