// Package file serves profiles from a YAML or JSON snapshot file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/store/memory"
)

// entry is one profile in a snapshot file. Profiles without an active flag
// are active.
type entry struct {
	profile.Record `mapstructure:",squash" yaml:",inline"`
	Active         *bool `mapstructure:"active" yaml:"active,omitempty" json:"active,omitempty"`
}

type document struct {
	Profiles []entry `yaml:"profiles" json:"profiles"`
}

// Store is a memory store loaded from a file. Writes are persisted back to
// the same file.
type Store struct {
	*memory.Store

	path string
	mu   sync.Mutex
}

// Open loads path into a new store.
func Open(path string) (*Store, error) {
	profiles, active, err := Load(path)
	if err != nil {
		return nil, err
	}

	mem := memory.New(profiles...)
	for _, p := range profiles {
		if !active[p.ID] {
			if err := mem.Deactivate(context.Background(), p.ID); err != nil {
				return nil, err
			}
		}
	}

	return &Store{Store: mem, path: path}, nil
}

func (s *Store) UpsertProfiles(ctx context.Context, profiles []*profile.UserProfile) error {
	if err := s.Store.UpsertProfiles(ctx, profiles); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	if err := s.Store.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, active := s.Store.All()
	return Write(s.path, profiles, active)
}

// Load reads a snapshot file. The file is either a list of profiles or a
// mapping with a profiles key. JSON files are read by the YAML decoder.
func Load(path string) ([]*profile.UserProfile, map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading profiles file %q: %w", path, err)
	}

	return Decode(data)
}

// Decode parses snapshot data.
func Decode(data []byte) ([]*profile.UserProfile, map[string]bool, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing profiles: %w", err)
	}

	if m, ok := raw.(map[string]any); ok {
		raw = m["profiles"]
	}
	if raw == nil {
		return nil, map[string]bool{}, nil
	}

	var entries []entry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			stringToSliceHook,
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &entries,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, nil, fmt.Errorf("decoding profiles: %w", err)
	}

	profiles := make([]*profile.UserProfile, 0, len(entries))
	active := make(map[string]bool, len(entries))
	for i, e := range entries {
		p, err := profile.New(e.Record)
		if err != nil {
			return nil, nil, fmt.Errorf("profile %d: %w", i, err)
		}
		if _, dup := active[p.ID]; dup {
			return nil, nil, fmt.Errorf("profile %d: %w: %s", i, profile.ErrDuplicateID, p.ID)
		}
		profiles = append(profiles, p)
		active[p.ID] = e.Active == nil || *e.Active
	}

	return profiles, active, nil
}

// stringToSliceHook lets a single tag be written as a comma separated string.
func stringToSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return []string{}, nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// Write dumps profiles to path. The format follows the extension: .json
// writes JSON, anything else YAML. active may be nil, in which case every
// profile is written as active.
func Write(path string, profiles []*profile.UserProfile, active map[string]bool) error {
	doc := document{Profiles: make([]entry, 0, len(profiles))}
	for _, p := range profiles {
		e := entry{Record: p.Record()}
		if active != nil && !active[p.ID] {
			inactive := false
			e.Active = &inactive
		}
		doc.Profiles = append(doc.Profiles, e)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(doc, "", "  ")
	default:
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encoding profiles: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing profiles file %q: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing profiles file %q: %w", path, err)
	}
	return nil
}
