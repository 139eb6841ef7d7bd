package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// SQLite is the durable Store. Rows carry a version; a write whose version
// moved since it was read fails with ErrConflict.
type SQLite struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *tierSeq
	b   *entsql.DialectBuilder
}

var (
	_ Store    = (*SQLite)(nil)
	_ EventLog = (*SQLite)(nil)
)

// Open connects to the SQLite database at dsn, applies the recommended
// pragmas and migrates the schema.
func Open(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newTierSeq(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &SQLite{db: db, drv: drv, seq: seq, b: entsql.Dialect(dialect.SQLite)}, nil
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}

// withPragmas appends the pragma parameters understood by modernc.org/sqlite
// unless the caller already set some.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.drv.Close()
}

func (s *SQLite) Update(ctx context.Context, keys []proficiency.Key, fn func(*Txn) error) error {
	keys = SortedKeys(keys)
	loaded, versions, err := s.load(ctx, keys)
	if err != nil {
		return err
	}

	txn := NewTxn(keys, loaded)
	if err := fn(txn); err != nil {
		return err
	}
	writes := txn.Writes()
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	for _, e := range writes {
		if err := s.write(ctx, tx, e, versions[e.Key]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *SQLite) load(ctx context.Context, keys []proficiency.Key) (map[proficiency.Key]Entry, map[proficiency.Key]int64, error) {
	entries := make(map[proficiency.Key]Entry, len(keys))
	versions := make(map[proficiency.Key]int64, len(keys))
	if len(keys) == 0 {
		return entries, versions, nil
	}

	pkeys := make([]any, len(keys))
	for i, k := range keys {
		pkeys[i] = k.String()
	}
	query, args := s.b.Select(recordColumns...).
		From(s.b.Table(proficiencyTable)).
		Where(entsql.In("pkey", pkeys...)).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, mapSQLiteErr(fmt.Errorf("load records: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		e, v, err := scanEntry(rows)
		if err != nil {
			return nil, nil, err
		}
		entries[e.Key] = e
		versions[e.Key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapSQLiteErr(fmt.Errorf("load records: %w", err))
	}
	return entries, versions, nil
}

func (s *SQLite) write(ctx context.Context, tx *sql.Tx, e Entry, version int64) error {
	var query string
	var args []any
	if version == 0 {
		query, args = s.b.Insert(proficiencyTable).
			Columns(recordColumns...).
			Values(rowValues(e, 1)...).
			Query()
	} else {
		query, args = s.b.Update(proficiencyTable).
			Set("alpha", e.Alpha).
			Set("beta", e.Beta).
			Set("mean_ability", e.MeanAbility).
			Set("confidence", e.Confidence).
			Set("sample_count", e.SampleCount).
			Set("last_updated", encodeTime(e.LastUpdated)).
			Set("tier", encodeTier(e)).
			Set("parent", e.Parent).
			Set("children", encodeChildren(e.Children)).
			Set("version", version+1).
			Where(entsql.And(
				entsql.EQ("pkey", e.Key.String()),
				entsql.EQ("version", version),
			)).
			Query()
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return mapSQLiteErr(fmt.Errorf("write %s: %w", e.Key, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s: %w", e.Key, err)
	}
	if n == 0 {
		return fmt.Errorf("write %s at version %d: %w", e.Key, version, ErrConflict)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key proficiency.Key) (Entry, bool, error) {
	query, args := s.b.Select(recordColumns...).
		From(s.b.Table(proficiencyTable)).
		Where(entsql.EQ("pkey", key.String())).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return Entry{}, false, rows.Err()
	}
	e, _, err := scanEntry(rows)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *SQLite) List(ctx context.Context, studentID string) ([]Entry, error) {
	sel := s.b.Select(recordColumns...).From(s.b.Table(proficiencyTable))
	if studentID != "" {
		sel = sel.Where(entsql.EQ("student_id", studentID))
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, _, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	SortEntries(out)
	return out, nil
}

func (s *SQLite) Students(ctx context.Context) ([]string, error) {
	query, args := s.b.Select("student_id").
		Distinct().
		From(s.b.Table(proficiencyTable)).
		OrderBy("student_id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func rowValues(e Entry, version int64) []any {
	return []any{
		e.Key.String(), e.StudentID, string(e.Level), e.ID,
		e.Alpha, e.Beta, e.MeanAbility, e.Confidence,
		e.SampleCount, encodeTime(e.LastUpdated), encodeTier(e), version,
		e.Parent, encodeChildren(e.Children),
	}
}

func scanEntry(rows *sql.Rows) (Entry, int64, error) {
	var (
		e                            Entry
		pkey, level, tierS, children string
		last, version                int64
	)
	err := rows.Scan(
		&pkey, &e.StudentID, &level, &e.ID,
		&e.Alpha, &e.Beta, &e.MeanAbility, &e.Confidence,
		&e.SampleCount, &last, &tierS, &version,
		&e.Parent, &children,
	)
	if err != nil {
		return Entry{}, 0, fmt.Errorf("scan record: %w", err)
	}
	if e.Level, err = proficiency.ParseLevel(level); err != nil {
		return Entry{}, 0, fmt.Errorf("record %s: %w", pkey, err)
	}
	e.LastUpdated = decodeTime(last)
	if err := decodeTier(&e, tierS); err != nil {
		return Entry{}, 0, fmt.Errorf("record %s: %w", pkey, err)
	}
	if e.Children, err = decodeChildren(children); err != nil {
		return Entry{}, 0, fmt.Errorf("record %s: children: %w", pkey, err)
	}
	return e, version, nil
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func encodeTier(e Entry) string {
	if !e.HasTier {
		return ""
	}
	return e.Tier.String()
}

func decodeTier(e *Entry, s string) error {
	if s == "" {
		e.Tier, e.HasTier = tier.Easy, false
		return nil
	}
	t, err := tier.Parse(s)
	if err != nil {
		return err
	}
	e.Tier, e.HasTier = t, true
	return nil
}

func encodeChildren(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func decodeChildren(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// mapSQLiteErr turns lock contention and unique-key races into ErrConflict.
func mapSQLiteErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CONSTRAINT:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PHA_DB environment variable
// 2. $XDG_DATA_HOME/proficiency/proficiency.db
// 3. ~/.local/share/proficiency/proficiency.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PHA_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "proficiency", "proficiency.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
