package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

var ErrNoChoices = errors.New("llm: no choices returned")

// generator is the part of llms.Model the analyzer uses.
type generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Analyzer classifies review text with an OpenAI-compatible chat model.
type Analyzer struct {
	model    generator
	attempts int
}

// New connects to an OpenAI-compatible endpoint. token may be empty for local servers.
func New(baseURL, model, token string) (*Analyzer, error) {
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{openai.WithToken(token), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(client), nil
}

func NewWithModel(m generator) *Analyzer {
	return &Analyzer{model: m, attempts: 3}
}

type answer struct {
	Topic        *string  `json:"topic"`
	Sentiment    *float64 `json:"sentiment"`
	Satisfaction *string  `json:"satisfaction"`
}

func (a *Analyzer) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, text),
	}

	// retry only on malformed JSON; transport errors go straight back
	var lastErr error
	for attempt := 0; attempt < a.attempts; attempt++ {
		start := time.Now()
		resp, err := a.model.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		status := 200
		if err != nil {
			status = 0
		}
		observability.ObserveExternal("llm", "classify", status, time.Since(start))
		if err != nil {
			return domain.Analysis{}, fmt.Errorf("generate content: %w", err)
		}
		if len(resp.Choices) == 0 {
			return domain.Analysis{}, ErrNoChoices
		}

		var out answer
		if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Content)), &out); err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("malformed classifier response")
			continue
		}
		if out.Sentiment != nil {
			s := clamp(*out.Sentiment)
			out.Sentiment = &s
		}
		return domain.Analysis{Topic: out.Topic, Sentiment: out.Sentiment, SatisfactionText: out.Satisfaction}, nil
	}
	return domain.Analysis{}, fmt.Errorf("parse classifier response: %w", lastErr)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp(f float64) float64 {
	return max(-1, min(1, f))
}

var systemPrompt = `You label app store reviews for a mobile operator.
Reply with a single JSON object and nothing else:
{"topic": one of [` + quotedLabels() + `],
 "sentiment": a number from -1 (very negative) to 1 (very positive),
 "satisfaction": "satisfied", "dissatisfied" or "neutral"}
Reviews may be written in Indonesian or English.`

func quotedLabels() string {
	q := make([]string, len(domain.TopicLabels))
	for i, l := range domain.TopicLabels {
		q[i] = `"` + l + `"`
	}
	return strings.Join(q, ", ")
}
