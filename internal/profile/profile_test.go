package profile

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestNewTagSetNormalizes(t *testing.T) {
	t.Parallel()

	set := NewTagSet("  Open Source ", "AI", "open source", "", "   ", "ai", "Healthcare")

	if set.Len() != 3 {
		t.Fatalf("expected 3 tags, got %d (%v)", set.Len(), set.Labels())
	}

	want := []string{"AI", "Healthcare", "Open Source"}
	for i, label := range set.Labels() {
		if label != want[i] {
			t.Fatalf("label %d: expected %q, got %q", i, want[i], label)
		}
	}

	if !set.Contains("OPEN SOURCE") {
		t.Fatalf("expected case-insensitive contains")
	}
	if set.Contains("Open") {
		t.Fatalf("did not expect partial tag to match exactly")
	}
	if !set.ContainsSubstring("open") {
		t.Fatalf("expected substring match")
	}
}

func TestTagSetOperations(t *testing.T) {
	t.Parallel()

	a := NewTagSet("AI", "OpenSource")
	b := NewTagSet("ai", "Healthcare")

	if got := a.Intersect(b).Labels(); len(got) != 1 || got[0] != "AI" {
		t.Fatalf("unexpected intersection: %v", got)
	}
	if got := a.UnionLen(b); got != 3 {
		t.Fatalf("expected union of 3, got %d", got)
	}
	if got := a.Minus(b).Labels(); len(got) != 1 || got[0] != "OpenSource" {
		t.Fatalf("unexpected difference: %v", got)
	}
	if got := TagSet(nil).UnionLen(nil); got != 0 {
		t.Fatalf("expected empty union, got %d", got)
	}
}

func TestTagSetEncoding(t *testing.T) {
	t.Parallel()

	var fromJSON TagSet
	if err := json.Unmarshal([]byte(`["Go"," go ","Rust"]`), &fromJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromJSON.Len() != 2 {
		t.Fatalf("expected duplicates to collapse, got %v", fromJSON.Labels())
	}

	var fromYAML TagSet
	if err := yaml.Unmarshal([]byte("- Design\n- design\n- Figma\n"), &fromYAML); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromYAML.Len() != 2 {
		t.Fatalf("expected duplicates to collapse, got %v", fromYAML.Labels())
	}

	value, err := fromYAML.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var scanned TagSet
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scanned.String() != fromYAML.String() {
		t.Fatalf("expected %q, got %q", fromYAML.String(), scanned.String())
	}

	if err := scanned.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestNewValidatesRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{
			name: "valid",
			rec: Record{
				ID:          "2",
				DisplayName: "Marcus Johnson",
				University:  "MIT",
				GitHub:      "https://github.com/marcusj",
				Skills:      []string{"Python", "python", "TensorFlow"},
			},
		},
		{
			name:    "missing id",
			rec:     Record{DisplayName: "No Id"},
			wantErr: true,
		},
		{
			name:    "id with whitespace",
			rec:     Record{ID: " 7 ", DisplayName: "Jordan"},
			wantErr: true,
		},
		{
			name:    "missing display name",
			rec:     Record{ID: "3"},
			wantErr: true,
		},
		{
			name:    "malformed link",
			rec:     Record{ID: "4", DisplayName: "David", LinkedIn: "not a url"},
			wantErr: true,
		},
		{
			name:    "tag too long",
			rec:     Record{ID: "5", DisplayName: "Alex", Interests: []string{strings.Repeat("x", 65)}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := New(tt.rec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProfile) {
					t.Fatalf("expected ErrInvalidProfile, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Skills.Len() != 2 {
				t.Fatalf("expected skills to be deduplicated, got %v", p.Skills.Labels())
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	a := &UserProfile{ID: "a", DisplayName: "A"}
	b := &UserProfile{ID: "b", DisplayName: "B"}

	snap, err := NewSnapshot([]*UserProfile{a, nil, b}, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("expected 2 profiles, got %d", snap.Len())
	}
	if snap.FindByID("b") != b {
		t.Fatalf("expected to find b")
	}
	if !snap.TakenAt().Equal(at) {
		t.Fatalf("unexpected snapshot time %v", snap.TakenAt())
	}

	items := snap.Items()
	items[0] = nil
	if snap.Items()[0] != a {
		t.Fatalf("expected Items to return a copy")
	}

	c := &UserProfile{ID: "c", DisplayName: "C"}
	extended := snap.WithProfile(c)
	if extended.Len() != 3 || snap.Len() != 2 {
		t.Fatalf("expected WithProfile to leave the receiver untouched")
	}
	if snap.WithProfile(a) != snap {
		t.Fatalf("expected existing id to return the same snapshot")
	}

	if _, err := NewSnapshot([]*UserProfile{a, {ID: "a"}}, at); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	p, err := New(Record{ID: "1", DisplayName: "Sarah", Skills: []string{"React"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := p.Clone()
	c.Skills[0].Label = "changed"
	if p.Skills[0].Label != "React" {
		t.Fatalf("expected clone to copy tag slices")
	}
}
