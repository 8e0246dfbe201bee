package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned by stores when a profile id is unknown.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidProfile wraps every validation failure of a raw record.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrDuplicateID is returned when a snapshot receives two profiles with the same id.
	ErrDuplicateID = errors.New("duplicate profile id")
)

// UserProfile is a validated student profile. Values are shared read-only
// between goroutines once constructed; nothing in the engine mutates them.
type UserProfile struct {
	ID           string    `json:"id" yaml:"id"`
	DisplayName  string    `json:"display_name" yaml:"display_name"`
	University   string    `json:"university,omitempty" yaml:"university,omitempty"`
	Bio          string    `json:"bio,omitempty" yaml:"bio,omitempty"`
	GitHub       string    `json:"github,omitempty" yaml:"github,omitempty"`
	LinkedIn     string    `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Skills       TagSet    `json:"skills" yaml:"skills"`
	Interests    TagSet    `json:"interests" yaml:"interests"`
	LookingFor   TagSet    `json:"looking_for" yaml:"looking_for"`
	Online       bool      `json:"online" yaml:"online"`
	LastActiveAt time.Time `json:"last_active_at" yaml:"last_active_at"`
}

// Record is the raw boundary representation of a profile as it arrives from
// files, databases or API payloads.
type Record struct {
	ID           string    `json:"id" yaml:"id" mapstructure:"id" db:"id" validate:"required,max=64,trimmed"`
	DisplayName  string    `json:"display_name" yaml:"display_name" mapstructure:"display_name" db:"display_name" validate:"required,max=100"`
	University   string    `json:"university" yaml:"university" mapstructure:"university" db:"university" validate:"max=100"`
	Bio          string    `json:"bio" yaml:"bio" mapstructure:"bio" db:"bio" validate:"max=2000"`
	GitHub       string    `json:"github" yaml:"github" mapstructure:"github" db:"github" validate:"omitempty,url"`
	LinkedIn     string    `json:"linkedin" yaml:"linkedin" mapstructure:"linkedin" db:"linkedin" validate:"omitempty,url"`
	Skills       []string  `json:"skills" yaml:"skills" mapstructure:"skills" validate:"max=50,dive,max=64"`
	Interests    []string  `json:"interests" yaml:"interests" mapstructure:"interests" validate:"max=50,dive,max=64"`
	LookingFor   []string  `json:"looking_for" yaml:"looking_for" mapstructure:"looking_for" validate:"max=50,dive,max=64"`
	Online       bool      `json:"online" yaml:"online" mapstructure:"online" db:"online"`
	LastActiveAt time.Time `json:"last_active_at" yaml:"last_active_at" mapstructure:"last_active_at" db:"last_active_at"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// ids are compared byte-wise, so surrounding whitespace would create look-alike ids
	_ = v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == strings.TrimSpace(value)
	})
	return v
}

// New validates the record and builds a profile from it.
func New(rec Record) (*UserProfile, error) {
	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidProfile, rec.ID, describeValidation(err))
	}

	return &UserProfile{
		ID:           rec.ID,
		DisplayName:  strings.TrimSpace(rec.DisplayName),
		University:   strings.TrimSpace(rec.University),
		Bio:          strings.TrimSpace(rec.Bio),
		GitHub:       strings.TrimSpace(rec.GitHub),
		LinkedIn:     strings.TrimSpace(rec.LinkedIn),
		Skills:       NewTagSet(rec.Skills...),
		Interests:    NewTagSet(rec.Interests...),
		LookingFor:   NewTagSet(rec.LookingFor...),
		Online:       rec.Online,
		LastActiveAt: rec.LastActiveAt.UTC(),
	}, nil
}

// NewAll converts records in order and stops on the first invalid one.
func NewAll(records []Record) ([]*UserProfile, error) {
	profiles := make([]*UserProfile, 0, len(records))
	for i, rec := range records {
		p, err := New(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Record returns the boundary form of the profile.
func (p *UserProfile) Record() Record {
	return Record{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		University:   p.University,
		Bio:          p.Bio,
		GitHub:       p.GitHub,
		LinkedIn:     p.LinkedIn,
		Skills:       p.Skills.Labels(),
		Interests:    p.Interests.Labels(),
		LookingFor:   p.LookingFor.Labels(),
		Online:       p.Online,
		LastActiveAt: p.LastActiveAt,
	}
}

// Clone returns a deep copy. Stores hand out clones so callers never share
// memory with the store's own state.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Skills = append(TagSet(nil), p.Skills...)
	c.Interests = append(TagSet(nil), p.Interests...)
	c.LookingFor = append(TagSet(nil), p.LookingFor...)
	return &c
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
