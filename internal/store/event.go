package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// tierSeq numbers tier changes per database. The counter lives in a
// one-row table and is bumped by a single upsert, so concurrent processes
// sharing the file never reuse a number.
type tierSeq struct {
	db *sql.DB
}

func newTierSeq(db *sql.DB) (*tierSeq, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS tier_change_seq (
		id      INTEGER PRIMARY KEY CHECK (id = 1),
		counter INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create tier change sequence: %w", err)
	}
	return &tierSeq{db: db}, nil
}

// next returns the sequence for the next tier change, starting at 1.
func (q *tierSeq) next(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO tier_change_seq (id, counter) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET counter = counter + 1
		RETURNING counter`,
	).Scan(&n)
	if err != nil {
		return 0, mapSQLiteErr(fmt.Errorf("next tier change sequence: %w", err))
	}
	return n, nil
}

var tierChangeColumnNames = []string{
	"id", "sequence", "student_id", "level", "identifier",
	"from_tier", "to_tier", "rule", "mean_ability", "confidence", "timestamp",
}

func (s *SQLite) AppendTierChange(ctx context.Context, ev TierChange) error {
	seqNum, err := s.seq.next(ctx)
	if err != nil {
		return err
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	query, args := s.b.Insert(tierChangeTable).
		Columns(tierChangeColumnNames...).
		Values(
			ev.ID.String(), seqNum, ev.Key.StudentID, string(ev.Key.Level), ev.Key.ID,
			ev.From.String(), ev.To.String(), ev.Rule, ev.Mean, ev.Confidence, encodeTime(ev.At),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save tier change: %w", err)
	}
	return nil
}

func (s *SQLite) TierChanges(ctx context.Context, studentID string, limit int) ([]TierChange, error) {
	sel := s.b.Select(tierChangeColumnNames...).
		From(s.b.Table(tierChangeTable)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tier changes: %w", err)
	}
	defer rows.Close()

	var out []TierChange
	for rows.Next() {
		var (
			ev                  TierChange
			id, level, from, to string
			at                  int64
		)
		if err := rows.Scan(&id, &ev.Sequence, &ev.Key.StudentID, &level, &ev.Key.ID,
			&from, &to, &ev.Rule, &ev.Mean, &ev.Confidence, &at); err != nil {
			return nil, fmt.Errorf("scan tier change: %w", err)
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("tier change id %q: %w", id, err)
		}
		if ev.Key.Level, err = proficiency.ParseLevel(level); err != nil {
			return nil, err
		}
		if ev.From, err = tier.Parse(from); err != nil {
			return nil, err
		}
		if ev.To, err = tier.Parse(to); err != nil {
			return nil, err
		}
		ev.At = decodeTime(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}
