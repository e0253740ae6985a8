package domain

import "time"

// Topic labels offered to the classifier.
var TopicLabels = []string{"Network", "App", "Payment/Billing", "Recharge/Sales", "Customer Service", "Other"}

// Sentiment buckets
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Satisfaction labels
const (
	Satisfied    = "SATISFIED"
	Dissatisfied = "DISSATISFIED"
	Neutral      = "NEUTRAL"
)

// Analysis is what the model returned for one review text. Any part may be missing.
type Analysis struct {
	Topic            *string
	Sentiment        *float64 // -1..1
	SatisfactionText *string
}

type EnrichedReview struct {
	ReviewID          string
	AppID             string
	Country           string
	Lang              string
	AppVersion        *string
	UserName          *string
	Content           *string
	ThumbsUpCount     *int
	StarScore         *float64
	ReviewedTS        *time.Time
	RepliedTS         *time.Time
	IsReplied         bool
	TopicClass        *string
	SentimentScore    *float64
	SatisfactionText  *string
	SentimentBucket   string
	SatisfactionLabel string
	ReplyLatencyMin   *int64
	SourceSyncedAt    time.Time
}
