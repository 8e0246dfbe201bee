// Package postgres stores profiles in PostgreSQL with tag columns as text arrays.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/wecollab/matchmaker/internal/profile"
)

const DefaultTable = "profiles"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type row struct {
	ID           string         `db:"id"`
	DisplayName  string         `db:"display_name"`
	University   string         `db:"university"`
	Bio          string         `db:"bio"`
	GitHub       string         `db:"github"`
	LinkedIn     string         `db:"linkedin"`
	Skills       pq.StringArray `db:"skills"`
	Interests    pq.StringArray `db:"interests"`
	LookingFor   pq.StringArray `db:"looking_for"`
	Online       bool           `db:"online"`
	LastActiveAt sql.NullTime   `db:"last_active_at"`
}

func (r row) record() profile.Record {
	return profile.Record{
		ID:           r.ID,
		DisplayName:  r.DisplayName,
		University:   r.University,
		Bio:          r.Bio,
		GitHub:       r.GitHub,
		LinkedIn:     r.LinkedIn,
		Skills:       r.Skills,
		Interests:    r.Interests,
		LookingFor:   r.LookingFor,
		Online:       r.Online,
		LastActiveAt: r.LastActiveAt.Time,
	}
}

// Store is a PostgreSQL profile store.
type Store struct {
	db    *sqlx.DB
	table string
}

// Open connects to dsn and creates the profile table when missing.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(time.Hour)

	s, err := New(ctx, db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection.
func New(ctx context.Context, db *sqlx.DB, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, table: table}
	if err := s.initTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			university TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			github TEXT NOT NULL DEFAULT '',
			linkedin TEXT NOT NULL DEFAULT '',
			skills TEXT[] NOT NULL DEFAULT '{}',
			interests TEXT[] NOT NULL DEFAULT '{}',
			looking_for TEXT[] NOT NULL DEFAULT '{}',
			online BOOLEAN NOT NULL DEFAULT FALSE,
			last_active_at TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_active ON %s (is_active)`, s.table, s.table)
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

const columns = `id, display_name, university, bio, github, linkedin,
	skills, interests, looking_for, online, last_active_at`

// ListActiveProfiles reads the active rows in one statement, which gives a
// consistent snapshot under PostgreSQL's read committed isolation.
func (s *Store) ListActiveProfiles(ctx context.Context) ([]*profile.UserProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active ORDER BY id`, columns, s.table)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("selecting active profiles: %w", err)
	}

	profiles := make([]*profile.UserProfile, 0, len(rows))
	for _, r := range rows {
		p, err := profile.New(r.record())
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*profile.UserProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, s.table)

	var r row
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
		}
		return nil, fmt.Errorf("selecting profile %s: %w", id, err)
	}
	return profile.New(r.record())
}

func (s *Store) UpsertProfiles(ctx context.Context, profiles []*profile.UserProfile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, display_name, university, bio, github, linkedin,
			skills, interests, looking_for, online, last_active_at, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			university = EXCLUDED.university,
			bio = EXCLUDED.bio,
			github = EXCLUDED.github,
			linkedin = EXCLUDED.linkedin,
			skills = EXCLUDED.skills,
			interests = EXCLUDED.interests,
			looking_for = EXCLUDED.looking_for,
			online = EXCLUDED.online,
			last_active_at = EXCLUDED.last_active_at,
			is_active = TRUE,
			updated_at = CURRENT_TIMESTAMP
	`, s.table)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		if p == nil {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, p.DisplayName, p.University, p.Bio, p.GitHub, p.LinkedIn,
			pq.Array(p.Skills.Labels()), pq.Array(p.Interests.Labels()), pq.Array(p.LookingFor.Labels()),
			p.Online, nullTime(p.LastActiveAt),
		)
		if err != nil {
			return fmt.Errorf("upsert profile %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, s.table)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate profile %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
