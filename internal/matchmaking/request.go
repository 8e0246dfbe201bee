package matchmaking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wecollab/matchmaker/internal/filtering"
	"github.com/wecollab/matchmaker/internal/ranking"
)

const (
	// DefaultPageSize is used by transports when the caller omits a page size.
	DefaultPageSize = 20
	// MaxPageSize is the default upper bound for a page.
	MaxPageSize = 100
)

// ErrInvalidRequest is returned for malformed pagination or filter values.
var ErrInvalidRequest = errors.New("invalid request")

// ErrInvalidRequester is returned when the requester id is unknown.
var ErrInvalidRequester = filtering.ErrInvalidRequester

// Request is a single matchmaking query.
type Request struct {
	RequesterID string             `json:"requester_id" validate:"required,max=64"`
	Filters     filtering.Criteria `json:"filters"`
	SortKey     string             `json:"sort_key" validate:"omitempty,sortkey"`
	Page        int                `json:"page" validate:"gte=0"`
	PageSize    int                `json:"page_size" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("sortkey", func(fl validator.FieldLevel) bool {
		_, err := ranking.ParseSortKey(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the request against the page size limit.
func (r Request) Validate(maxPageSize int) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(err))
	}
	return r.validateLimits(maxPageSize)
}

// ValidateOptions checks everything except the requester, for callers that
// only learn who is asking later.
func (r Request) ValidateOptions(maxPageSize int) error {
	if err := validate.StructExcept(r, "RequesterID"); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(err))
	}
	return r.validateLimits(maxPageSize)
}

func (r Request) validateLimits(maxPageSize int) error {
	if maxPageSize > 0 && r.PageSize > maxPageSize {
		return fmt.Errorf("%w: page_size %d exceeds the maximum of %d", ErrInvalidRequest, r.PageSize, maxPageSize)
	}
	if r.Page > 0 && r.Page > (1<<31)/r.PageSize {
		return fmt.Errorf("%w: page %d is out of range", ErrInvalidRequest, r.Page)
	}
	// filters carry their own checks, they must fail here and not after the store was read
	for _, step := range filtering.CriteriaFilters(r.Filters) {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrInvalidRequest, step.Name(), err)
		}
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Request.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
