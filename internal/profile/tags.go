package profile

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Tag is a single normalized tag. Key is used for comparison, Label keeps the
// first spelling seen so it can be shown back to users.
type Tag struct {
	Key   string
	Label string
}

// TagSet is a set of tags sorted by key without duplicates.
// The zero value is an empty set.
type TagSet []Tag

// NormalizeTag trims the value and folds its case.
func NormalizeTag(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}

// NewTagSet builds a set from raw values. Blank values are skipped and
// duplicates after normalization collapse into the first occurrence.
func NewTagSet(values ...string) TagSet {
	if len(values) == 0 {
		return nil
	}

	folder := cases.Fold()
	seen := make(map[string]struct{}, len(values))
	set := make(TagSet, 0, len(values))
	for _, value := range values {
		label := strings.TrimSpace(value)
		if label == "" {
			continue
		}
		key := folder.String(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, Tag{Key: key, Label: label})
	}

	sort.Slice(set, func(i, j int) bool { return set[i].Key < set[j].Key })
	return set
}

func (s TagSet) Len() int {
	return len(s)
}

// Contains reports whether the set holds a tag equal to value after normalization.
func (s TagSet) Contains(value string) bool {
	return s.containsKey(NormalizeTag(value))
}

func (s TagSet) containsKey(key string) bool {
	idx := sort.Search(len(s), func(i int) bool { return s[i].Key >= key })
	return idx < len(s) && s[idx].Key == key
}

// ContainsSubstring reports whether any tag contains value, ignoring case.
func (s TagSet) ContainsSubstring(value string) bool {
	needle := NormalizeTag(value)
	if needle == "" {
		return true
	}
	for _, tag := range s {
		if strings.Contains(tag.Key, needle) {
			return true
		}
	}
	return false
}

// Intersect returns tags present in both sets. Labels come from s.
func (s TagSet) Intersect(other TagSet) TagSet {
	var out TagSet
	for _, tag := range s {
		if other.containsKey(tag.Key) {
			out = append(out, tag)
		}
	}
	return out
}

// Minus returns tags of s that are absent from other.
func (s TagSet) Minus(other TagSet) TagSet {
	var out TagSet
	for _, tag := range s {
		if !other.containsKey(tag.Key) {
			out = append(out, tag)
		}
	}
	return out
}

// UnionLen returns the size of the union of both sets.
func (s TagSet) UnionLen(other TagSet) int {
	return len(s) + len(other) - len(s.Intersect(other))
}

// Labels returns display labels in key order.
func (s TagSet) Labels() []string {
	labels := make([]string, 0, len(s))
	for _, tag := range s {
		labels = append(labels, tag.Label)
	}
	return labels
}

// Keys returns normalized keys in order.
func (s TagSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, tag := range s {
		keys = append(keys, tag.Key)
	}
	return keys
}

func (s TagSet) String() string {
	return strings.Join(s.Labels(), ",")
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Labels())
}

func (s *TagSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*s = NewTagSet(values...)
	return nil
}

func (s TagSet) MarshalYAML() (any, error) {
	return s.Labels(), nil
}

func (s *TagSet) UnmarshalYAML(node *yaml.Node) error {
	var values []string
	if err := node.Decode(&values); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*s = NewTagSet(values...)
	return nil
}

// Value stores the set as a JSON array of labels.
func (s TagSet) Value() (driver.Value, error) {
	data, err := json.Marshal(s.Labels())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan reads a JSON array of labels written by Value.
func (s *TagSet) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		*s = nil
		return nil
	}
	return s.UnmarshalJSON(data)
}
