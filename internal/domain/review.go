package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Review is one raw record as returned by the upstream review source.
// Every field except ReviewID may be absent.
type Review struct {
	ReviewID             string          `json:"reviewId"`
	UserName             *string         `json:"userName,omitempty"`
	Score                *int            `json:"score,omitempty"`
	ThumbsUpCount        *int            `json:"thumbsUpCount,omitempty"`
	Content              *string         `json:"content,omitempty"`
	ReplyContent         *string         `json:"replyContent,omitempty"`
	ReviewCreatedVersion *string         `json:"reviewCreatedVersion,omitempty"`
	AppVersion           *string         `json:"appVersion,omitempty"`
	Criteria             json.RawMessage `json:"criteria,omitempty"`
	At                   *string         `json:"at,omitempty"`
	RepliedAt            *string         `json:"repliedAt,omitempty"`

	// DecodeErr is set when the record did not decode; only ReviewID and At are
	// then recovered, as far as they could be read.
	DecodeErr error `json:"-"`
}

// UnmarshalJSON drops at/repliedAt values that are not strings instead of failing
// the record. Any other type mismatch is still an error.
func (r *Review) UnmarshalJSON(b []byte) error {
	type plain Review
	var aux struct {
		plain
		At        json.RawMessage `json:"at"`
		RepliedAt json.RawMessage `json:"repliedAt"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Review(aux.plain)
	r.At = looseString(aux.At)
	r.RepliedAt = looseString(aux.RepliedAt)
	return nil
}

// DecodeReview decodes one upstream record. It never fails: a record that does not
// decode comes back with DecodeErr set.
func DecodeReview(raw json.RawMessage) Review {
	var r Review
	err := json.Unmarshal(raw, &r)
	if err == nil {
		return r
	}
	out := Review{DecodeErr: fmt.Errorf("decode review: %w", err)}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) == nil {
		if id := looseString(fields["reviewId"]); id != nil {
			out.ReviewID = *id
		}
		out.At = looseString(fields["at"])
	}
	return out
}

func looseString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// Locale is the context a review was fetched under.
type Locale struct {
	AppID   string
	Lang    string
	Country string
}

// Row is the normalized, storage-ready form of a Review.
// `at` is a reserved word in the warehouse, so the creation time is ReviewedAt.
type Row struct {
	ReviewID      string          `json:"review_id"`
	UserName      *string         `json:"user_name"`
	Score         *int            `json:"score"`
	ThumbsUpCount *int            `json:"thumbs_up_count"`
	Content       *string         `json:"content"`
	ReplyContent  *string         `json:"reply_content"`
	AppVersion    *string         `json:"app_version"`
	Criteria      json.RawMessage `json:"criteria"`
	ReviewedAt    *string         `json:"reviewed_at"`
	RepliedAt     *string         `json:"replied_at"`
	Lang          string          `json:"lang"`
	Country       string          `json:"country"`
	AppID         string          `json:"app_id"`
	SyncedAt      string          `json:"synced_at"`
}

// Page is one response of the upstream paging protocol.
// An empty NextToken means there is nothing more to fetch.
type Page struct {
	Reviews   []Review
	NextToken string
}

type PageRequest struct {
	AppID   string
	Lang    string
	Country string
	Sort    Sort
	Count   int
	Token   string
}

// Read models
type ReviewsQuery struct {
	AppID   string
	Lang    string
	Country string
	Limit   int
}

type ReviewsPage struct {
	Items []Row `json:"items"`
}
