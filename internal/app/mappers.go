package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"playreviews/internal/domain"
)

var errMissingReviewID = errors.New("review has no reviewId")

func isoUTC(s *string) *string {
	t := domain.ParseTimestamp(s)
	if t == nil {
		return nil
	}
	out := domain.FormatTimestamp(*t)
	return &out
}

func firstNonEmpty(ps ...*string) *string {
	for _, p := range ps {
		if p != nil && strings.TrimSpace(*p) != "" {
			return p
		}
	}
	return nil
}

/********** record mapper **********/

// MapRecord converts one upstream review into a storage row. It has no side effects;
// it fails only for a review without an id or one that did not decode.
func MapRecord(r domain.Review, loc domain.Locale, syncedAt time.Time) (domain.Row, error) {
	if r.DecodeErr != nil {
		return domain.Row{}, r.DecodeErr
	}
	id := strings.TrimSpace(r.ReviewID)
	if id == "" {
		return domain.Row{}, errMissingReviewID
	}

	var criteria json.RawMessage
	if c := bytes.TrimSpace(r.Criteria); len(c) > 0 && !bytes.Equal(c, []byte("null")) {
		criteria = append(json.RawMessage(nil), c...)
	}

	return domain.Row{
		ReviewID:      id,
		UserName:      r.UserName,
		Score:         r.Score,
		ThumbsUpCount: r.ThumbsUpCount,
		Content:       r.Content,
		ReplyContent:  r.ReplyContent,
		AppVersion:    firstNonEmpty(r.ReviewCreatedVersion, r.AppVersion),
		Criteria:      criteria,
		ReviewedAt:    isoUTC(r.At),
		RepliedAt:     isoUTC(r.RepliedAt),
		Lang:          loc.Lang,
		Country:       loc.Country,
		AppID:         loc.AppID,
		SyncedAt:      domain.FormatTimestamp(syncedAt),
	}, nil
}
