package ranking

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wecollab/matchmaker/internal/scoring"
)

// SortKey selects the ordering of ranked matches.
type SortKey string

const (
	SortByScore      SortKey = "score"
	SortByName       SortKey = "name"
	SortByUniversity SortKey = "university"
	SortByOnline     SortKey = "online"
)

// SortKeys lists the accepted keys in their canonical form.
var SortKeys = []SortKey{SortByScore, SortByName, SortByUniversity, SortByOnline}

// ErrUnknownSortKey is returned by ParseSortKey for unsupported values.
var ErrUnknownSortKey = errors.New("unknown sort key")

// ParseSortKey accepts the canonical keys plus the aliases used by the web
// client. An empty value selects SortByScore.
func ParseSortKey(value string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "score", "match-score", "match_score":
		return SortByScore, nil
	case "name":
		return SortByName, nil
	case "university":
		return SortByUniversity, nil
	case "online", "online-status":
		return SortByOnline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, value)
	}
}

// Ranker orders scored candidates. The collation tag decides how names and
// universities compare.
type Ranker struct {
	tag language.Tag
}

func New(tag language.Tag) *Ranker {
	return &Ranker{tag: tag}
}

// Rank returns a new slice ordered by key. Every key ends with the candidate
// id as the last tie-break so the order is total and never depends on the
// input order.
func (r *Ranker) Rank(matches []scoring.Match, key SortKey) ([]scoring.Match, error) {
	cmp, err := r.comparator(key)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(matches)
	slices.SortStableFunc(out, cmp)
	return out, nil
}

func (r *Ranker) comparator(key SortKey) (func(a, b scoring.Match) int, error) {
	switch key {
	case SortByScore, "":
		return chain(byScore, byRecency, byID), nil
	case SortByName:
		// collate.Collator keeps internal buffers and is not safe for concurrent use.
		col := collate.New(r.tag, collate.IgnoreCase)
		byName := func(a, b scoring.Match) int {
			return col.CompareString(a.Candidate.DisplayName, b.Candidate.DisplayName)
		}
		return chain(byName, byID), nil
	case SortByUniversity:
		col := collate.New(r.tag, collate.IgnoreCase)
		byUniversity := func(a, b scoring.Match) int {
			return col.CompareString(a.Candidate.University, b.Candidate.University)
		}
		return chain(byUniversity, byScore, byID), nil
	case SortByOnline:
		return chain(byOnline, byScore, byID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
}

func chain(cmps ...func(a, b scoring.Match) int) func(a, b scoring.Match) int {
	return func(a, b scoring.Match) int {
		for _, cmp := range cmps {
			if c := cmp(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}

func byScore(a, b scoring.Match) int {
	return b.Score - a.Score
}

func byRecency(a, b scoring.Match) int {
	return b.Candidate.LastActiveAt.Compare(a.Candidate.LastActiveAt)
}

func byID(a, b scoring.Match) int {
	return strings.Compare(a.Candidate.ID, b.Candidate.ID)
}

func byOnline(a, b scoring.Match) int {
	switch {
	case a.Candidate.Online == b.Candidate.Online:
		return 0
	case a.Candidate.Online:
		return -1
	default:
		return 1
	}
}

// Paginate returns list[page*size : page*size+size], clipped to the list.
// A page past the end yields an empty slice, never an error.
func Paginate[T any](list []T, page, size int) []T {
	if page < 0 || size <= 0 {
		return []T{}
	}

	start := page * size
	if start >= len(list) || start/size != page {
		return []T{}
	}

	end := start + min(size, len(list)-start)
	return slices.Clone(list[start:end])
}
