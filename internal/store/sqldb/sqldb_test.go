package sqldb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wecollab/matchmaker/internal/profile"
)

func setupSQLiteTest(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "matchmaker.db")
	s, err := Open(context.Background(), DriverSQLite, path, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustProfile(t *testing.T, rec profile.Record) *profile.UserProfile {
	t.Helper()
	p, err := profile.New(rec)
	require.NoError(t, err)
	return p
}

func TestSQLiteStore_UpsertAndList(t *testing.T) {
	t.Parallel()

	s := setupSQLiteTest(t)
	ctx := context.Background()
	seen := time.Date(2026, 10, 1, 11, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertProfiles(ctx, []*profile.UserProfile{
		mustProfile(t, profile.Record{
			ID: "2", DisplayName: "Marcus Johnson", University: "MIT",
			Skills: []string{"Python", "Machine Learning"}, Interests: []string{"AI"},
			LookingFor: []string{"Frontend Developer"}, LastActiveAt: seen,
		}),
		mustProfile(t, profile.Record{ID: "1", DisplayName: "Sarah Chen", Online: true}),
	}))

	active, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	assert.Equal(t, "1", active[0].ID)
	assert.True(t, active[0].Online)
	assert.True(t, active[0].LastActiveAt.IsZero())
	assert.Equal(t, 0, active[0].Skills.Len())

	marcus := active[1]
	assert.Equal(t, []string{"Machine Learning", "Python"}, marcus.Skills.Labels())
	assert.True(t, marcus.LookingFor.Contains("frontend developer"))
	assert.True(t, marcus.LastActiveAt.Equal(seen))
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	t.Parallel()

	s := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfiles(ctx, []*profile.UserProfile{
		mustProfile(t, profile.Record{ID: "1", DisplayName: "Sarah", Skills: []string{"React"}}),
	}))
	require.NoError(t, s.Deactivate(ctx, "1"))
	require.NoError(t, s.UpsertProfiles(ctx, []*profile.UserProfile{
		mustProfile(t, profile.Record{ID: "1", DisplayName: "Sarah Chen", Skills: []string{"Vue"}}),
	}))

	active, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Sarah Chen", active[0].DisplayName)
	assert.Equal(t, []string{"Vue"}, active[0].Skills.Labels())
}

func TestSQLiteStore_Deactivate(t *testing.T) {
	t.Parallel()

	s := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfiles(ctx, []*profile.UserProfile{
		mustProfile(t, profile.Record{ID: "1", DisplayName: "Sarah Chen"}),
		mustProfile(t, profile.Record{ID: "2", DisplayName: "Marcus Johnson"}),
	}))
	require.NoError(t, s.Deactivate(ctx, "2"))

	active, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	inactive, err := s.GetProfile(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Marcus Johnson", inactive.DisplayName)

	_, err = s.GetProfile(ctx, "404")
	require.ErrorIs(t, err, profile.ErrNotFound)
	require.ErrorIs(t, s.Deactivate(ctx, "404"), profile.ErrNotFound)
}

func TestOpenValidatesArguments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := Open(ctx, "oracle", "dsn", "")
	require.Error(t, err)

	_, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "x.db"), "Profiles-1")
	require.Error(t, err)

	_, err = Open(ctx, DriverMySQL, "not a dsn", "")
	require.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn, err := mysqlDSN("user:secret@tcp(localhost:3306)/matchmaker")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
}
