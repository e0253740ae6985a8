package mysql

import (
	"context"
	"database/sql"

	"playreviews/internal/domain"
)

// History appends one sync_runs row per target pass.
type History struct{ db *sql.DB }

func NewHistory(db *sql.DB) *History { return &History{db: db} }

func (h *History) RecordRun(ctx context.Context, r domain.RunRecord) error {
	_, err := h.db.ExecContext(ctx, insertRunSQL,
		r.ID, r.StateKey, r.EffectiveSort,
		r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.Fetched, r.Processed, r.Errors,
		r.Status, valStr(r.Error),
	)
	return err
}

func (h *History) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	rows, err := h.db.QueryContext(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RunRecord{}
	for rows.Next() {
		var (
			r   domain.RunRecord
			msg sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.StateKey, &r.EffectiveSort, &r.StartedAt, &r.FinishedAt,
			&r.Fetched, &r.Processed, &r.Errors, &r.Status, &msg); err != nil {
			return nil, err
		}
		r.Error = nullStr(msg)
		out = append(out, r)
	}
	return out, rows.Err()
}
