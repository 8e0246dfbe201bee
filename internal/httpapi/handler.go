package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/ai"
	"github.com/wecollab/matchmaker/internal/filtering"
	"github.com/wecollab/matchmaker/internal/matchmaking"
	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/store"
)

var (
	errExplainDisabled  = errors.New("AI explanations are not enabled")
	errRequesterMissing = errors.New("requester is required")
)

// Querier runs matchmaking queries.
type Querier interface {
	Query(ctx context.Context, req matchmaking.Request) (*matchmaking.Result, error)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MatchesResponse is a query result with optional explanations aligned to
// Results.
type MatchesResponse struct {
	*matchmaking.Result
	Explanations []*ai.Explanation `json:"explanations,omitempty"`
}

type matchesQuery struct {
	Requester string `form:"requester"`
	filtering.Criteria
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Explain  bool   `form:"explain"`
}

type Handler struct {
	engine         Querier
	profiles       store.Store
	explainer      ai.Explainer
	explainWorkers int
	logger         *zap.Logger
}

// Options configure optional handler features.
type Options struct {
	// Explainer enables ?explain=true when set.
	Explainer      ai.Explainer
	ExplainWorkers int
}

func NewHandler(engine Querier, profiles store.Store, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ExplainWorkers <= 0 {
		opts.ExplainWorkers = 4
	}

	return &Handler{
		engine:         engine,
		profiles:       profiles,
		explainer:      opts.Explainer,
		explainWorkers: opts.ExplainWorkers,
		logger:         log,
	}
}

// Matches handles GET /api/v1/matches.
func (h *Handler) Matches(c *gin.Context) {
	var q matchesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters: " + err.Error()})
		return
	}
	if q.Explain && h.explainer == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errExplainDisabled.Error()})
		return
	}
	if q.PageSize == 0 {
		q.PageSize = matchmaking.DefaultPageSize
	}

	ctx := c.Request.Context()
	result, err := h.engine.Query(ctx, matchmaking.Request{
		RequesterID: q.Requester,
		Filters:     q.Criteria,
		SortKey:     q.Sort,
		Page:        q.Page,
		PageSize:    q.PageSize,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := MatchesResponse{Result: result}
	if q.Explain && len(result.Results) > 0 {
		requester, err := h.profiles.GetProfile(ctx, q.Requester)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp.Explanations = ai.ExplainAll(ctx, h.explainer, requester, result.Results, h.explainWorkers, requestLogger(c, h.logger))
	}

	c.JSON(http.StatusOK, resp)
}

// Filters handles GET /api/v1/filters. It reports which pipeline steps the
// given query parameters would enable.
func (h *Handler) Filters(c *gin.Context) {
	var q matchesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters: " + err.Error()})
		return
	}
	if q.Requester == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errRequesterMissing.Error()})
		return
	}

	c.JSON(http.StatusOK, filtering.Describe(filtering.Pipeline(q.Requester, q.Criteria)))
}

// Profile handles GET /api/v1/profiles/:id.
func (h *Handler) Profile(c *gin.Context) {
	p, err := h.profiles.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		requestLogger(c, h.logger).Error("request failed", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, matchmaking.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, matchmaking.ErrInvalidRequester), errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
