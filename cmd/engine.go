package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/wecollab/matchmaker/internal/ai"
	"github.com/wecollab/matchmaker/internal/ai/gemini"
	"github.com/wecollab/matchmaker/internal/matchmaking"
	"github.com/wecollab/matchmaker/internal/ranking"
	"github.com/wecollab/matchmaker/internal/scoring"
	"github.com/wecollab/matchmaker/internal/secrets"
	"github.com/wecollab/matchmaker/internal/store"
)

const defaultAIWorkers = 4

func newEngine(cfg MatchingConfig, profiles store.Store, logger *zap.Logger) (*matchmaking.Engine, error) {
	if cfg.MaxPageSize < 0 || cfg.MaxPageSize > matchmaking.MaxPageSize {
		return nil, fmt.Errorf("matching.max-page-size must be between 0 (default) and %d, got %d", matchmaking.MaxPageSize, cfg.MaxPageSize)
	}

	scorer, err := scoring.New(cfg.Config)
	if err != nil {
		return nil, err
	}

	tag, err := language.Parse(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("parsing matching language %q: %w", cfg.Language, err)
	}

	return matchmaking.New(profiles, scorer, ranking.New(tag), logger, matchmaking.Options{
		MaxPageSize: cfg.MaxPageSize,
		Workers:     cfg.Workers,
	}), nil
}

// newExplainer returns nil when AI explanations are disabled.
func newExplainer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Explainer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "gemini"
	}
	if provider != "gemini" {
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required when AI is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{Name: "gemini api key", Value: cfg.Gemini.APIKey, File: cfg.Gemini.APIKeyFile})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger.Info("AI explanations enabled", zap.String("provider", provider), zap.String("model", generator.Model()))
	return gemini.NewExplainer(generator, logger, cfg.Gemini.MaxLogLength), nil
}

func aiWorkers(cfg *AIConfig) int {
	if cfg == nil || cfg.Workers <= 0 {
		return defaultAIWorkers
	}
	return cfg.Workers
}
