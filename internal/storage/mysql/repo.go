package mysql

import (
	"context"
	"database/sql"
	"time"

	"playreviews/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

// valTS stores an ISO-8601 row timestamp as DATETIME(6) UTC.
func valTS(p *string) any {
	return valTime(domain.ParseTimestamp(p))
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}
func nullTS(nt sql.NullTime) *string {
	if !nt.Valid {
		return nil
	}
	s := domain.FormatTimestamp(nt.Time)
	return &s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertRow(ctx context.Context, row domain.Row) error {
	_, err := r.db.ExecContext(ctx, upsertReviewSQL,
		row.ReviewID,
		valStr(row.UserName),
		valInt(row.Score),
		valInt(row.ThumbsUpCount),
		valStr(row.Content),
		valStr(row.ReplyContent),
		valStr(row.AppVersion),
		valJSON(row.Criteria),
		valTS(row.ReviewedAt),
		valTS(row.RepliedAt),
		row.Lang,
		row.Country,
		row.AppID,
		valTS(&row.SyncedAt),
	)
	return err
}

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, q.AppID, q.Lang, q.Country, q.Limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: out}, nil
}

func scanRows(rows *sql.Rows) ([]domain.Row, error) {
	var out []domain.Row
	for rows.Next() {
		var (
			rw                            domain.Row
			userName, content, reply, ver sql.NullString
			score, thumbs                 sql.NullInt64
			criteria                      []byte
			reviewedAt, repliedAt         sql.NullTime
			syncedAt                      sql.NullTime
		)
		if err := rows.Scan(
			&rw.ReviewID,
			&userName,
			&score,
			&thumbs,
			&content,
			&reply,
			&ver,
			&criteria,
			&reviewedAt,
			&repliedAt,
			&rw.Lang,
			&rw.Country,
			&rw.AppID,
			&syncedAt,
		); err != nil {
			return nil, err
		}
		rw.UserName = nullStr(userName)
		rw.Score = nullInt(score)
		rw.ThumbsUpCount = nullInt(thumbs)
		rw.Content = nullStr(content)
		rw.ReplyContent = nullStr(reply)
		rw.AppVersion = nullStr(ver)
		if len(criteria) > 0 {
			rw.Criteria = criteria
		}
		rw.ReviewedAt = nullTS(reviewedAt)
		rw.RepliedAt = nullTS(repliedAt)
		if syncedAt.Valid {
			rw.SyncedAt = domain.FormatTimestamp(syncedAt.Time)
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}
