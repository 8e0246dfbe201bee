package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/wecollab/matchmaker/internal/profile"
)

const (
	// DefaultUniversityBaseline is the affinity given to candidates from another university.
	DefaultUniversityBaseline = 0.3
	// DefaultActivityWindow is how long an offline candidate keeps a non-zero activity bonus.
	DefaultActivityWindow = 7 * 24 * time.Hour
)

// ErrInvalidConfig is returned when weights or factors are out of range.
var ErrInvalidConfig = errors.New("invalid scoring config")

// Weights are the integer weights of each factor. They must sum to 100.
type Weights struct {
	Interests  int `mapstructure:"interests" json:"interests"`
	Skills     int `mapstructure:"skills" json:"skills"`
	University int `mapstructure:"university" json:"university"`
	Activity   int `mapstructure:"activity" json:"activity"`
}

func DefaultWeights() Weights {
	return Weights{Interests: 40, Skills: 35, University: 15, Activity: 10}
}

func (w Weights) Sum() int {
	return w.Interests + w.Skills + w.University + w.Activity
}

func (w Weights) Validate() error {
	if w.Interests < 0 || w.Skills < 0 || w.University < 0 || w.Activity < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	}
	if w.Sum() != 100 {
		return fmt.Errorf("%w: weights sum to %d, expected 100", ErrInvalidConfig, w.Sum())
	}
	return nil
}

// Config configures a Scorer.
type Config struct {
	Weights            Weights             `mapstructure:"weights"`
	UniversityBaseline float64             `mapstructure:"university-baseline"`
	ActivityWindow     time.Duration       `mapstructure:"activity-window"`
	RoleAliases        map[string][]string `mapstructure:"role-aliases"`
}

// DefaultConfig returns the standard weights with the built-in role aliases.
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights(),
		UniversityBaseline: DefaultUniversityBaseline,
		ActivityWindow:     DefaultActivityWindow,
		RoleAliases:        DefaultRoleAliases(),
	}
}

// DefaultRoleAliases maps the roles students usually look for to the skills
// that satisfy them.
func DefaultRoleAliases() map[string][]string {
	return map[string][]string{
		"Frontend Developer":   {"Frontend", "Frontend Development", "React", "Vue", "Angular", "TypeScript"},
		"Backend Developer":    {"Backend", "Backend Development", "Node.js", "Go", "Java", "Python", "Databases"},
		"Full Stack Developer": {"Full Stack", "Full Stack Development"},
		"Mobile Developer":     {"Mobile", "Mobile Development", "iOS", "Android", "Flutter", "React Native"},
		"UI/UX Designer":       {"Design", "UI/UX Design", "Figma", "User Research"},
		"Data Scientist":       {"Data Science", "Machine Learning", "Statistics", "Python"},
		"ML Engineer":          {"Machine Learning", "Deep Learning", "TensorFlow", "PyTorch"},
		"DevOps Engineer":      {"DevOps", "Kubernetes", "Docker", "CI/CD", "AWS"},
		"Product Manager":      {"Product Management", "Product Strategy", "Agile"},
		"Business Developer":   {"Business Development", "Marketing", "Sales"},
	}
}

func (c Config) withDefaults() Config {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	if c.ActivityWindow == 0 {
		c.ActivityWindow = DefaultActivityWindow
	}
	if c.RoleAliases == nil {
		c.RoleAliases = DefaultRoleAliases()
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.UniversityBaseline < 0 || c.UniversityBaseline > 1 {
		return fmt.Errorf("%w: university baseline %.2f is outside [0,1]", ErrInvalidConfig, c.UniversityBaseline)
	}
	if c.ActivityWindow < 0 {
		return fmt.Errorf("%w: activity window must be positive", ErrInvalidConfig)
	}
	return nil
}

func compileAliases(raw map[string][]string) map[string]profile.TagSet {
	aliases := make(map[string]profile.TagSet, len(raw))
	for role, skills := range raw {
		key := profile.NormalizeTag(role)
		if key == "" {
			continue
		}
		merged := append(aliases[key].Labels(), skills...)
		aliases[key] = profile.NewTagSet(merged...)
	}
	return aliases
}
