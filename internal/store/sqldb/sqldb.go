// Package sqldb stores profiles in SQLite or MySQL. Tag columns hold JSON
// arrays.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wecollab/matchmaker/internal/profile"
)

const DefaultTable = "profiles"

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type dialect struct {
	schema string
	upsert string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		schema: `
			CREATE TABLE IF NOT EXISTS %[1]s (
				id TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				university TEXT NOT NULL DEFAULT '',
				bio TEXT NOT NULL DEFAULT '',
				github TEXT NOT NULL DEFAULT '',
				linkedin TEXT NOT NULL DEFAULT '',
				skills TEXT NOT NULL DEFAULT '[]',
				interests TEXT NOT NULL DEFAULT '[]',
				looking_for TEXT NOT NULL DEFAULT '[]',
				online BOOLEAN NOT NULL DEFAULT 0,
				last_active_at TIMESTAMP NULL,
				is_active BOOLEAN NOT NULL DEFAULT 1,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
		upsert: `
			INSERT INTO %[1]s (
				id, display_name, university, bio, github, linkedin,
				skills, interests, looking_for, online, last_active_at, is_active
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT (id) DO UPDATE SET
				display_name = excluded.display_name,
				university = excluded.university,
				bio = excluded.bio,
				github = excluded.github,
				linkedin = excluded.linkedin,
				skills = excluded.skills,
				interests = excluded.interests,
				looking_for = excluded.looking_for,
				online = excluded.online,
				last_active_at = excluded.last_active_at,
				is_active = 1,
				updated_at = CURRENT_TIMESTAMP`,
	},
	DriverMySQL: {
		schema: `
			CREATE TABLE IF NOT EXISTS %[1]s (
				id VARCHAR(64) PRIMARY KEY,
				display_name VARCHAR(100) NOT NULL,
				university VARCHAR(100) NOT NULL DEFAULT '',
				bio TEXT NOT NULL,
				github VARCHAR(255) NOT NULL DEFAULT '',
				linkedin VARCHAR(255) NOT NULL DEFAULT '',
				skills JSON NOT NULL,
				interests JSON NOT NULL,
				looking_for JSON NOT NULL,
				online BOOLEAN NOT NULL DEFAULT FALSE,
				last_active_at DATETIME(6) NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
				INDEX idx_%[1]s_active (is_active)
			)`,
		upsert: `
			INSERT INTO %[1]s (
				id, display_name, university, bio, github, linkedin,
				skills, interests, looking_for, online, last_active_at, is_active
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)
			ON DUPLICATE KEY UPDATE
				display_name = VALUES(display_name),
				university = VALUES(university),
				bio = VALUES(bio),
				github = VALUES(github),
				linkedin = VALUES(linkedin),
				skills = VALUES(skills),
				interests = VALUES(interests),
				looking_for = VALUES(looking_for),
				online = VALUES(online),
				last_active_at = VALUES(last_active_at),
				is_active = TRUE`,
	},
}

type row struct {
	ID           string         `db:"id"`
	DisplayName  string         `db:"display_name"`
	University   string         `db:"university"`
	Bio          string         `db:"bio"`
	GitHub       string         `db:"github"`
	LinkedIn     string         `db:"linkedin"`
	Skills       profile.TagSet `db:"skills"`
	Interests    profile.TagSet `db:"interests"`
	LookingFor   profile.TagSet `db:"looking_for"`
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
		Skills:       r.Skills.Labels(),
		Interests:    r.Interests.Labels(),
		LookingFor:   r.LookingFor.Labels(),
		Online:       r.Online,
		LastActiveAt: r.LastActiveAt.Time,
	}
}

// Store is a SQLite or MySQL profile store.
type Store struct {
	db      *sqlx.DB
	table   string
	dialect dialect
}

// Open connects with driver (DriverSQLite or DriverMySQL) and creates the
// profile table when missing. For SQLite dsn is a file path.
func Open(ctx context.Context, driver, dsn, table string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	if driver == DriverMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, table: table, dialect: d}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(d.schema, table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return s, nil
}

// mysqlDSN forces time parsing in UTC so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

const columns = `id, display_name, university, bio, github, linkedin,
	skills, interests, looking_for, online, last_active_at`

// ListActiveProfiles reads every active row in a single statement.
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
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, s.table)

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
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(s.dialect.upsert, s.table))
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
			p.Skills, p.Interests, p.LookingFor,
			p.Online, nullTime(p.LastActiveAt),
		)
		if err != nil {
			return fmt.Errorf("upsert profile %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	// MySQL reports zero affected rows when nothing changes, so existence is
	// checked separately.
	var exists int
	err := s.db.GetContext(ctx, &exists, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, s.table), id)
	if err != nil {
		return fmt.Errorf("deactivate profile %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}

	query := fmt.Sprintf(`UPDATE %s SET is_active = FALSE WHERE id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate profile %s: %w", id, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
