package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"playreviews/internal/domain"
)

const enrichBatch = 500

func (r *Repo) EnsureEnrichedTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createEnrichedSQL)
	return err
}

func (r *Repo) SourceRows(ctx context.Context, since *time.Time) ([]domain.Row, error) {
	q, args := sourceRowsSQL+" ORDER BY synced_at, review_id", []any(nil)
	if since != nil {
		q = sourceRowsSQL + " WHERE synced_at > ? ORDER BY synced_at, review_id"
		args = append(args, since.UTC())
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (r *Repo) EnrichedWatermark(ctx context.Context) (*time.Time, error) {
	var wm sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(source_synced_at) FROM `+enrichedTable).Scan(&wm); err != nil {
		return nil, err
	}
	if !wm.Valid {
		return nil, nil
	}
	t := wm.Time.UTC()
	return &t, nil
}

func (r *Repo) UpsertEnriched(ctx context.Context, rs []domain.EnrichedReview) error {
	return r.insertEnriched(ctx, enrichedTable, rs, true)
}

// ReplaceEnriched builds a staging copy and swaps it in with one RENAME TABLE,
// so readers see either the old table or the complete new one.
func (r *Repo) ReplaceEnriched(ctx context.Context, rs []domain.EnrichedReview) error {
	staging, old := enrichedTable+"_staging", enrichedTable+"_old"
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS " + staging,
		"DROP TABLE IF EXISTS " + old,
		"CREATE TABLE " + staging + " LIKE " + enrichedTable,
	} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("prepare staging: %w", err)
		}
	}
	if err := r.insertEnriched(ctx, staging, rs, false); err != nil {
		_, _ = r.db.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+staging)
		return fmt.Errorf("load staging: %w", err)
	}
	swap := fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s", enrichedTable, old, staging, enrichedTable)
	if _, err := r.db.ExecContext(ctx, swap); err != nil {
		return fmt.Errorf("swap enriched table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+old); err != nil {
		// the swap already happened; a leftover _old table is dropped by the next refresh
		log.Warn().Err(err).Msg("drop previous enriched table failed")
	}
	return nil
}

func (r *Repo) insertEnriched(ctx context.Context, table string, rs []domain.EnrichedReview, upsert bool) error {
	for start := 0; start < len(rs); start += enrichBatch {
		chunk := rs[start:min(start+enrichBatch, len(rs))]
		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*19)
		for _, e := range chunk {
			values = append(values, enrichedPlaceholders)
			args = append(args,
				e.ReviewID, e.AppID, e.Country, e.Lang,
				valStr(e.AppVersion), valStr(e.UserName), valStr(e.Content), valInt(e.ThumbsUpCount),
				valF64(e.StarScore), valTime(e.ReviewedTS), valTime(e.RepliedTS), e.IsReplied,
				valStr(e.TopicClass), valF64(e.SentimentScore), valStr(e.SatisfactionText),
				e.SentimentBucket, e.SatisfactionLabel, valInt64(e.ReplyLatencyMin), e.SourceSyncedAt.UTC(),
			)
		}
		q := "INSERT INTO " + table + " " + enrichedColumns + " VALUES " + strings.Join(values, ",")
		if upsert {
			q += enrichedOnDup
		}
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}
