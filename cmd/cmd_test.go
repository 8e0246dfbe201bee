package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/matchmaking"
	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/scoring"
)

const snapshotYAML = `profiles:
  - id: me
    display_name: Alex Chen
    interests: [AI]
    looking_for: [Frontend Developer]
  - id: "1"
    display_name: Sarah Chen
    skills: [React]
    interests: [AI]
    online: true
`

func TestConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Driver != driverFile || cfg.Store.Path != "profiles.yaml" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Store.ConnectDelay != 2*time.Second {
		t.Fatalf("unexpected connect delay %v", cfg.Store.ConnectDelay)
	}
	if cfg.Matching.Weights != scoring.DefaultWeights() {
		t.Fatalf("unexpected weights %+v", cfg.Matching.Weights)
	}
	if cfg.Matching.UniversityBaseline != scoring.DefaultUniversityBaseline {
		t.Fatalf("unexpected baseline %v", cfg.Matching.UniversityBaseline)
	}
	if cfg.Matching.ActivityWindow != scoring.DefaultActivityWindow {
		t.Fatalf("unexpected activity window %v", cfg.Matching.ActivityWindow)
	}
	if cfg.Matching.MaxPageSize != matchmaking.MaxPageSize {
		t.Fatalf("unexpected max page size %d", cfg.Matching.MaxPageSize)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected server addr %q", cfg.Server.Addr())
	}
	if cfg.AI != nil {
		t.Fatalf("expected AI to be unset")
	}
}

func TestConfigFromYAML(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	err := v.ReadConfig(strings.NewReader(`
store:
  driver: postgres
  dsn-file: /run/secrets/dsn
  cache:
    enabled: true
    addr: localhost:6379
    ttl: 1m
matching:
  weights:
    interests: 50
    skills: 25
    university: 15
    activity: 10
  workers: 8
ai:
  enabled: true
  gemini:
    model: gemini-2.5-pro
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Driver != driverPostgres || cfg.Store.DSNFile != "/run/secrets/dsn" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Store.Cache == nil || !cfg.Store.Cache.Enabled || cfg.Store.Cache.Addr != "localhost:6379" || cfg.Store.Cache.TTL != time.Minute {
		t.Fatalf("unexpected cache config: %+v", cfg.Store.Cache)
	}
	if cfg.Matching.Weights.Interests != 50 || cfg.Matching.Workers != 8 {
		t.Fatalf("unexpected matching config: %+v", cfg.Matching)
	}
	if cfg.AI == nil || cfg.AI.Gemini == nil || cfg.AI.Gemini.Model != "gemini-2.5-pro" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte(snapshotYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		cfg     StoreConfig
		want    int
		wantErr bool
	}{
		{name: "memory", cfg: StoreConfig{Driver: "memory"}},
		{name: "file", cfg: StoreConfig{Driver: " File ", Path: path}, want: 2},
		{name: "sqlite", cfg: StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "profiles.db")}},
		{name: "missing file", cfg: StoreConfig{Driver: "file", Path: filepath.Join(dir, "missing.yaml")}, wantErr: true},
		{name: "postgres without dsn", cfg: StoreConfig{Driver: "postgres", ConnectAttempts: 1}, wantErr: true},
		{name: "unknown", cfg: StoreConfig{Driver: "cassandra"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := openStore(context.Background(), tt.cfg, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer backend.Close()

			profiles, err := backend.ListActiveProfiles(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(profiles) != tt.want {
				t.Fatalf("expected %d profiles, got %d", tt.want, len(profiles))
			}
		})
	}
}

func TestNewEngineRunsQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(snapshotYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	backend, err := openStore(context.Background(), StoreConfig{Driver: "file", Path: path}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer backend.Close()

	engine, err := newEngine(MatchingConfig{Config: scoring.DefaultConfig(), Language: "en"}, backend, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := engine.Query(context.Background(), matchmaking.Request{RequesterID: "me", PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalCount != 1 || res.Results[0].Candidate.ID != "1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Results[0].ComplementarySkills) != 1 {
		t.Fatalf("expected React to fill the frontend role, got %v", res.Results[0].ComplementarySkills)
	}

	if _, err := newEngine(MatchingConfig{Config: scoring.DefaultConfig(), Language: "not a tag!"}, backend, nil); err == nil {
		t.Fatalf("expected language parse error")
	}
	for _, size := range []int{-1, matchmaking.MaxPageSize + 1, 100000} {
		if _, err := newEngine(MatchingConfig{Config: scoring.DefaultConfig(), Language: "en", MaxPageSize: size}, backend, nil); err == nil {
			t.Fatalf("expected max page size %d to be rejected", size)
		}
	}
}

func TestNewExplainerDisabled(t *testing.T) {
	explainer, err := newExplainer(context.Background(), &AIConfig{Enabled: false}, zap.NewNop())
	if err != nil || explainer != nil {
		t.Fatalf("expected no explainer, got %v, %v", explainer, err)
	}

	if _, err := newExplainer(context.Background(), &AIConfig{Enabled: true, Provider: "openai"}, zap.NewNop()); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	if _, err := newExplainer(context.Background(), &AIConfig{Enabled: true, Gemini: &GeminiConfig{}}, zap.NewNop()); err == nil {
		t.Fatalf("expected missing api key error")
	}
}

func TestPrintMatches(t *testing.T) {
	p := &profile.UserProfile{ID: "1", DisplayName: "Sarah Chen", Online: true}
	var b strings.Builder
	err := printMatches(&b, queryOutput{Result: &matchmaking.Result{
		Results:    []scoring.Match{{Candidate: p, Score: 88, Quality: scoring.QualityExcellent}},
		TotalCount: 1,
		PageSize:   20,
		SortKey:    "score",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(b.String(), "Sarah Chen") || !strings.Contains(b.String(), "1 matches") {
		t.Fatalf("unexpected output:\n%s", b.String())
	}
}

func TestRequestFlagsValidateBeforeRequester(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "defaults without requester", args: nil},
		{name: "zero page size", args: []string{"--page-size", "0"}, wantErr: true},
		{name: "unknown sort", args: []string{"--sort", "foo"}, wantErr: true},
		{name: "page size above max", args: []string{"--page-size", "101"}, wantErr: true},
		{name: "search too long", args: []string{"-q", strings.Repeat("é", 201)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
			addRequestFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			req := requestFromFlags(fs)
			err := req.ValidateOptions(matchmaking.MaxPageSize)
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%t, got %v", tt.wantErr, err)
			}
			if req.RequesterID != "" {
				t.Fatalf("expected no requester, got %q", req.RequesterID)
			}
		})
	}
}
