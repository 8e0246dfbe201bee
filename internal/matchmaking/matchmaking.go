package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/wecollab/matchmaker/internal/filtering"
	"github.com/wecollab/matchmaker/internal/logger"
	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/ranking"
	"github.com/wecollab/matchmaker/internal/scoring"
)

// parallelThreshold is the candidate count from which scoring is spread over workers.
const parallelThreshold = 256

// ProfileStore is the read side of a profile store.
type ProfileStore interface {
	ListActiveProfiles(ctx context.Context) ([]*profile.UserProfile, error)
	GetProfile(ctx context.Context, id string) (*profile.UserProfile, error)
}

// Result is the answer to a Request.
type Result struct {
	Results        []scoring.Match         `json:"results"`
	TotalCount     int                     `json:"total_count"`
	OnlineCount    int                     `json:"online_count"`
	HighMatchCount int                     `json:"high_match_count"`
	Buckets        map[scoring.Quality]int `json:"buckets"`
	Steps          []filtering.StepReport  `json:"steps"`
	SortKey        ranking.SortKey         `json:"sort_key"`
	Page           int                     `json:"page"`
	PageSize       int                     `json:"page_size"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// Options tune an Engine. Zero values select defaults.
type Options struct {
	MaxPageSize int
	Workers     int
	// Now is the clock used to stamp snapshots.
	Now func() time.Time
}

// Engine answers matchmaking queries. It keeps no per-query state and is
// safe for concurrent use.
type Engine struct {
	store       ProfileStore
	scorer      *scoring.Scorer
	ranker      *ranking.Ranker
	logger      *zap.Logger
	maxPageSize int
	workers     int
	now         func() time.Time
}

func New(store ProfileStore, scorer *scoring.Scorer, ranker *ranking.Ranker, log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if ranker == nil {
		ranker = ranking.New(language.English)
	}

	return &Engine{
		store:       store,
		scorer:      scorer,
		ranker:      ranker,
		logger:      log,
		maxPageSize: opts.MaxPageSize,
		workers:     opts.Workers,
		now:         opts.Now,
	}
}

// MaxPageSize returns the largest page the engine accepts.
func (e *Engine) MaxPageSize() int { return e.maxPageSize }

// Snapshot reads the active profiles once and stamps them with the current time.
func (e *Engine) Snapshot(ctx context.Context) (*profile.Snapshot, error) {
	profiles, err := e.store.ListActiveProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active profiles: %w", err)
	}

	snap, err := profile.NewSnapshot(profiles, e.now())
	if err != nil {
		return nil, fmt.Errorf("building profile snapshot: %w", err)
	}
	return snap, nil
}

// Query validates req, reads one snapshot and runs filter, score, rank and
// paginate over it.
func (e *Engine) Query(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(e.maxPageSize); err != nil {
		return nil, err
	}

	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return e.QuerySnapshot(ctx, req, snap)
}

// QuerySnapshot answers req against an already loaded snapshot.
func (e *Engine) QuerySnapshot(ctx context.Context, req Request, snap *profile.Snapshot) (*Result, error) {
	if err := req.Validate(e.maxPageSize); err != nil {
		return nil, err
	}

	key, err := ranking.ParseSortKey(req.SortKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	log := logger.WithQueryFields(e.logger, req.RequesterID, string(key))
	started := time.Now()

	result := &Result{
		Results:     []scoring.Match{},
		Buckets:     emptyBuckets(),
		Steps:       []filtering.StepReport{},
		SortKey:     key,
		Page:        req.Page,
		PageSize:    req.PageSize,
		GeneratedAt: snap.TakenAt(),
	}

	if snap.Len() == 0 {
		log.Info("profile store is empty")
		return result, nil
	}

	requester, snap, err := e.resolveRequester(ctx, req.RequesterID, snap)
	if err != nil {
		return nil, err
	}

	steps := filtering.Pipeline(requester.ID, req.Filters)
	candidates, reports, err := filtering.New(steps, log).RunFilters(ctx, requester.ID, snap)
	if err != nil {
		return nil, fmt.Errorf("filtering candidates: %w", err)
	}

	matches, err := e.scoreAll(ctx, requester, candidates.Items, snap.TakenAt())
	if err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}

	ranked, err := e.ranker.Rank(matches, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	for _, m := range ranked {
		if m.Candidate.Online {
			result.OnlineCount++
		}
		if m.IsHighMatch() {
			result.HighMatchCount++
		}
		result.Buckets[m.Quality]++
	}

	result.TotalCount = len(ranked)
	result.Steps = reports
	result.Results = ranking.Paginate(ranked, req.Page, req.PageSize)

	log.Info("query completed",
		zap.Int("snapshot", snap.Len()),
		zap.Int("total", result.TotalCount),
		zap.Int("returned", len(result.Results)),
		zap.Int("high_match", result.HighMatchCount),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}

// resolveRequester finds the requester in the snapshot. A requester that is
// not active is fetched from the store and added to a copy of the snapshot so
// the pipeline can see it.
func (e *Engine) resolveRequester(ctx context.Context, id string, snap *profile.Snapshot) (*profile.UserProfile, *profile.Snapshot, error) {
	if p := snap.FindByID(id); p != nil {
		return p, snap, nil
	}

	p, err := e.store.GetProfile(ctx, id)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidRequester, id)
	case err != nil:
		return nil, nil, fmt.Errorf("getting requester profile: %w", err)
	case p == nil || p.ID != id:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidRequester, id)
	}

	return p, snap.WithProfile(p), nil
}

// scoreAll scores candidates, keeping their order. Large lists are split
// across workers.
func (e *Engine) scoreAll(ctx context.Context, requester *profile.UserProfile, candidates []*profile.UserProfile, at time.Time) ([]scoring.Match, error) {
	matches := make([]scoring.Match, len(candidates))

	if e.workers == 1 || len(candidates) < parallelThreshold {
		for i, c := range candidates {
			matches[i] = e.scorer.Score(requester, c, at)
		}
		return matches, nil
	}

	chunk := (len(candidates) + e.workers - 1) / e.workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				matches[i] = e.scorer.Score(requester, candidates[i], at)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

func emptyBuckets() map[scoring.Quality]int {
	buckets := make(map[scoring.Quality]int, len(scoring.Qualities))
	for _, q := range scoring.Qualities {
		buckets[q] = 0
	}
	return buckets
}
