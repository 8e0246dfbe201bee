package scoring

import (
	"math"
	"time"

	"github.com/wecollab/matchmaker/internal/profile"
)

// HighMatchThreshold is the score from which a candidate counts as a high match.
const HighMatchThreshold = 85

// Breakdown holds the normalised factor values, each in [0,1].
type Breakdown struct {
	InterestOverlap      float64 `json:"interest_overlap"`
	SkillComplementarity float64 `json:"skill_complementarity"`
	UniversityAffinity   float64 `json:"university_affinity"`
	Activity             float64 `json:"activity"`
}

// Match is a scored candidate.
type Match struct {
	Candidate           *profile.UserProfile `json:"candidate"`
	Score               int                  `json:"score"`
	Quality             Quality              `json:"quality"`
	Breakdown           Breakdown            `json:"breakdown"`
	CommonInterests     []string             `json:"common_interests"`
	ComplementarySkills []string             `json:"complementary_skills"`
}

// IsHighMatch reports whether the match reaches HighMatchThreshold.
func (m Match) IsHighMatch() bool { return m.Score >= HighMatchThreshold }

// Scorer computes compatibility scores. It holds only immutable configuration
// and is safe for concurrent use.
type Scorer struct {
	weights  Weights
	baseline float64
	window   time.Duration
	aliases  map[string]profile.TagSet
}

func New(cfg Config) (*Scorer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Scorer{
		weights:  cfg.Weights,
		baseline: cfg.UniversityBaseline,
		window:   cfg.ActivityWindow,
		aliases:  compileAliases(cfg.RoleAliases),
	}, nil
}

// Score rates candidate for requester. at is the fixed reference instant of
// the query, normally the snapshot time, so identical inputs always give the
// same result.
func (s *Scorer) Score(requester, candidate *profile.UserProfile, at time.Time) Match {
	satisfied, complementary := s.complementarity(requester, candidate)

	b := Breakdown{
		InterestOverlap:      jaccard(requester.Interests, candidate.Interests),
		SkillComplementarity: ratio(satisfied, requester.LookingFor.Len()),
		UniversityAffinity:   s.universityAffinity(requester, candidate),
		Activity:             s.activity(candidate, at),
	}

	total := float64(s.weights.Interests)*b.InterestOverlap +
		float64(s.weights.Skills)*b.SkillComplementarity +
		float64(s.weights.University)*b.UniversityAffinity +
		float64(s.weights.Activity)*b.Activity

	score := clamp(int(math.Round(total)), 0, 100)

	return Match{
		Candidate:           candidate,
		Score:               score,
		Quality:             QualityOf(score),
		Breakdown:           b,
		CommonInterests:     requester.Interests.Intersect(candidate.Interests).Labels(),
		ComplementarySkills: complementary,
	}
}

// complementarity counts the requester roles the candidate can fill and
// returns the candidate skills that fill them and the requester lacks.
func (s *Scorer) complementarity(requester, candidate *profile.UserProfile) (int, []string) {
	satisfied := 0
	used := make(map[string]struct{})

	for _, role := range requester.LookingFor {
		filled := false
		for _, skill := range candidate.Skills {
			if !s.fills(role.Key, skill.Key) {
				continue
			}
			filled = true
			used[skill.Key] = struct{}{}
		}
		if filled {
			satisfied++
		}
	}

	complementary := make([]string, 0, len(used))
	for _, skill := range candidate.Skills {
		if _, ok := used[skill.Key]; !ok {
			continue
		}
		if requester.Skills.Contains(skill.Key) {
			continue
		}
		complementary = append(complementary, skill.Label)
	}

	return satisfied, complementary
}

func (s *Scorer) fills(role, skill string) bool {
	if role == skill {
		return true
	}
	aliases, ok := s.aliases[role]
	return ok && aliases.Contains(skill)
}

func (s *Scorer) universityAffinity(requester, candidate *profile.UserProfile) float64 {
	a := profile.NormalizeTag(requester.University)
	if a != "" && a == profile.NormalizeTag(candidate.University) {
		return 1
	}
	return s.baseline
}

func (s *Scorer) activity(candidate *profile.UserProfile, at time.Time) float64 {
	if candidate.Online {
		return 1
	}
	if candidate.LastActiveAt.IsZero() || s.window <= 0 {
		return 0
	}

	idle := at.Sub(candidate.LastActiveAt)
	if idle <= 0 {
		return 1
	}
	if idle >= s.window {
		return 0
	}
	return 1 - float64(idle)/float64(s.window)
}

func jaccard(a, b profile.TagSet) float64 {
	union := a.UnionLen(b)
	if union == 0 {
		return 0
	}
	return float64(a.Intersect(b).Len()) / float64(union)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
