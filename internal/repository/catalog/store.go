package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
)

//go:embed schema.sql
var schema string

// MemoryDSN opens a private in-memory catalog, used by tests.
const MemoryDSN = ":memory:"

// Store persists the relational catalog in SQLite.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open opens (or creates) the catalog database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// один writer, иначе "database is locked"
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Load reads every table. Reps and assignments come back in position order.
func (s *Store) Load(ctx context.Context) (catalog.Data, error) {
	var data catalog.Data
	queries := []struct {
		dest  any
		query string
	}{
		{&data.Companies, `SELECT id, name FROM companies ORDER BY id`},
		{&data.Users, `SELECT id, username, display_name, role, company_id, is_active FROM users ORDER BY id`},
		{&data.Plays, `SELECT id, company_id, title, description, is_active FROM plays ORDER BY id`},
		{&data.Reps, `SELECT id, play_id, company_id, prompt_title, prompt_text, prompt_type, asset_id, position
			FROM reps ORDER BY position`},
		{&data.Assets, `SELECT id, type, file_name, company_id FROM assets ORDER BY id`},
		{&data.Assignments, `SELECT id, user_id, play_id, assigned_date, status, completed_at, position
			FROM assignments ORDER BY position`},
		{&data.Submissions, `SELECT id, user_id, rep_id, submitted_at, submission_type, asset_id, company_id
			FROM submissions ORDER BY submitted_at, id`},
		{&data.Feedback, `SELECT id, submission_id, company_id, score, text, created_at FROM feedback ORDER BY id`},
	}
	for _, q := range queries {
		if err := s.db.SelectContext(ctx, q.dest, q.query); err != nil {
			return catalog.Data{}, fmt.Errorf("load catalog: %w", err)
		}
	}
	return data, nil
}

// Replace swaps the whole catalog content in one transaction.
func (s *Store) Replace(ctx context.Context, data catalog.Data) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{
		"companies", "users", "plays", "reps", "assets", "assignments", "submissions", "feedback",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertAll(ctx, tx, data); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertBatchSize keeps bulk inserts under SQLite's bound-variable limit.
const insertBatchSize = 500

func insertAll(ctx context.Context, tx *sqlx.Tx, data catalog.Data) error {
	steps := []func() error{
		func() error {
			return insertBatched(ctx, tx, "companies",
				`INSERT INTO companies (id, name) VALUES (:id, :name)`, data.Companies)
		},
		func() error {
			return insertBatched(ctx, tx, "users",
				`INSERT INTO users (id, username, display_name, role, company_id, is_active)
				VALUES (:id, :username, :display_name, :role, :company_id, :is_active)`, data.Users)
		},
		func() error {
			return insertBatched(ctx, tx, "plays",
				`INSERT INTO plays (id, company_id, title, description, is_active)
				VALUES (:id, :company_id, :title, :description, :is_active)`, data.Plays)
		},
		func() error {
			return insertBatched(ctx, tx, "reps",
				`INSERT INTO reps (id, play_id, company_id, prompt_title, prompt_text, prompt_type, asset_id, position)
				VALUES (:id, :play_id, :company_id, :prompt_title, :prompt_text, :prompt_type, :asset_id, :position)`,
				data.Reps)
		},
		func() error {
			return insertBatched(ctx, tx, "assets",
				`INSERT INTO assets (id, type, file_name, company_id)
				VALUES (:id, :type, :file_name, :company_id)`, data.Assets)
		},
		func() error {
			return insertBatched(ctx, tx, "assignments",
				`INSERT INTO assignments (id, user_id, play_id, assigned_date, status, completed_at, position)
				VALUES (:id, :user_id, :play_id, :assigned_date, :status, :completed_at, :position)`,
				data.Assignments)
		},
		func() error {
			return insertBatched(ctx, tx, "submissions",
				`INSERT INTO submissions (id, user_id, rep_id, submitted_at, submission_type, asset_id, company_id)
				VALUES (:id, :user_id, :rep_id, :submitted_at, :submission_type, :asset_id, :company_id)`,
				data.Submissions)
		},
		func() error {
			return insertBatched(ctx, tx, "feedback",
				`INSERT INTO feedback (id, submission_id, company_id, score, text, created_at)
				VALUES (:id, :submission_id, :company_id, :score, :text, :created_at)`, data.Feedback)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func insertBatched[T any](ctx context.Context, tx *sqlx.Tx, table, query string, rows []T) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
