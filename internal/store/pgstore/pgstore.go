// Package pgstore implements store.Store on PostgreSQL through pgx. Every
// unit of work runs in a SERIALIZABLE transaction; serialization failures,
// deadlocks and unique-key races surface as store.ErrConflict.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// SQLSTATE codes treated as retryable conflicts.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

const migration = `
CREATE TABLE IF NOT EXISTS proficiency (
	pkey         TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL,
	level        TEXT NOT NULL,
	identifier   TEXT NOT NULL,
	alpha        DOUBLE PRECISION NOT NULL,
	beta         DOUBLE PRECISION NOT NULL,
	mean_ability DOUBLE PRECISION NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	sample_count INTEGER NOT NULL,
	last_updated TIMESTAMPTZ,
	tier         TEXT NOT NULL DEFAULT '',
	version      BIGINT NOT NULL,
	UNIQUE (student_id, level, identifier)
);
CREATE INDEX IF NOT EXISTS proficiency_student_id ON proficiency (student_id);
ALTER TABLE proficiency ADD COLUMN IF NOT EXISTS parent TEXT NOT NULL DEFAULT '';
ALTER TABLE proficiency ADD COLUMN IF NOT EXISTS children TEXT[] NOT NULL DEFAULT '{}';
`

const selectColumns = `student_id, level, identifier, alpha, beta, mean_ability,
	confidence, sample_count, last_updated, tier, parent, children`

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to databaseURL, verifies the connection and creates the
// schema when missing.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse database URL: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, migration); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Update(ctx context.Context, keys []proficiency.Key, fn func(*store.Txn) error) error {
	keys = store.SortedKeys(keys)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite})
	if err != nil {
		return mapErr(fmt.Errorf("postgres: begin: %w", err))
	}
	defer tx.Rollback(ctx)

	loaded, err := load(ctx, tx, keys)
	if err != nil {
		return mapErr(err)
	}
	txn := store.NewTxn(keys, loaded)
	if err := fn(txn); err != nil {
		return err
	}

	for _, e := range txn.Writes() {
		_, err := tx.Exec(ctx, `
			INSERT INTO proficiency (pkey, student_id, level, identifier, alpha, beta,
				mean_ability, confidence, sample_count, last_updated, tier, parent, children, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
			ON CONFLICT (pkey) DO UPDATE SET
				alpha = EXCLUDED.alpha,
				beta = EXCLUDED.beta,
				mean_ability = EXCLUDED.mean_ability,
				confidence = EXCLUDED.confidence,
				sample_count = EXCLUDED.sample_count,
				last_updated = EXCLUDED.last_updated,
				tier = EXCLUDED.tier,
				parent = EXCLUDED.parent,
				children = EXCLUDED.children,
				version = proficiency.version + 1`,
			e.Key.String(), e.StudentID, string(e.Level), e.ID, e.Alpha, e.Beta,
			e.MeanAbility, e.Confidence, e.SampleCount, nullTime(e.LastUpdated), tierText(e),
			e.Parent, childrenArray(e),
		)
		if err != nil {
			return mapErr(fmt.Errorf("postgres: write %s: %w", e.Key, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapErr(fmt.Errorf("postgres: commit: %w", err))
	}
	return nil
}

func load(ctx context.Context, q pgx.Tx, keys []proficiency.Key) (map[proficiency.Key]store.Entry, error) {
	out := make(map[proficiency.Key]store.Entry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	pkeys := make([]string, len(keys))
	for i, k := range keys {
		pkeys[i] = k.String()
	}
	rows, err := q.Query(ctx, `SELECT `+selectColumns+` FROM proficiency WHERE pkey = ANY($1)`, pkeys)
	if err != nil {
		return nil, fmt.Errorf("postgres: load: %w", err)
	}
	entries, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Key] = e
	}
	return out, nil
}

func collect(rows pgx.Rows) ([]store.Entry, error) {
	defer rows.Close()
	var out []store.Entry
	for rows.Next() {
		var (
			e       store.Entry
			level   string
			last    *time.Time
			tierStr string
		)
		if err := rows.Scan(&e.StudentID, &level, &e.ID, &e.Alpha, &e.Beta, &e.MeanAbility,
			&e.Confidence, &e.SampleCount, &last, &tierStr, &e.Parent, &e.Children); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		lvl, err := proficiency.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		e.Level = lvl
		if last != nil {
			e.LastUpdated = last.UTC()
		}
		if len(e.Children) == 0 {
			e.Children = nil
		}
		if tierStr != "" {
			t, err := tier.Parse(tierStr)
			if err != nil {
				return nil, err
			}
			e.Tier, e.HasTier = t, true
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, key proficiency.Key) (store.Entry, bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM proficiency WHERE pkey = $1`, key.String())
	if err != nil {
		return store.Entry{}, false, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	entries, err := collect(rows)
	if err != nil || len(entries) == 0 {
		return store.Entry{}, false, err
	}
	return entries[0], true, nil
}

func (s *Store) List(ctx context.Context, studentID string) ([]store.Entry, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if studentID == "" {
		rows, err = s.pool.Query(ctx, `SELECT `+selectColumns+` FROM proficiency`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+selectColumns+` FROM proficiency WHERE student_id = $1`, studentID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, err
	}
	store.SortEntries(out)
	return out, nil
}

func (s *Store) Students(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT student_id FROM proficiency ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: students: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func tierText(e store.Entry) string {
	if !e.HasTier {
		return ""
	}
	return e.Tier.String()
}

// childrenArray keeps the NOT NULL array column satisfied for leaf entries.
func childrenArray(e store.Entry) []string {
	if e.Children == nil {
		return []string{}
	}
	return e.Children
}

func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
	}
	return err
}
