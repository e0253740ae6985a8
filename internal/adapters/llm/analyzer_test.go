package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type scriptedModel struct {
	replies []string
	err     error
	calls   int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r := m.replies[min(m.calls, len(m.replies))-1]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r}}}, nil
}

func TestAnalyze_ParsesFencedJSON(t *testing.T) {
	m := &scriptedModel{replies: []string{"```json\n{\"topic\":\"Network\",\"sentiment\":-1.7,\"satisfaction\":\"dissatisfied\"}\n```"}}
	got, err := NewWithModel(m).Analyze(context.Background(), "sinyal hilang")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Topic == nil || *got.Topic != "Network" {
		t.Fatalf("topic = %v", got.Topic)
	}
	if got.Sentiment == nil || *got.Sentiment != -1 {
		t.Fatalf("sentiment should be clamped, got %v", got.Sentiment)
	}
	if got.SatisfactionText == nil || *got.SatisfactionText != "dissatisfied" {
		t.Fatalf("satisfaction = %v", got.SatisfactionText)
	}
}

func TestAnalyze_RetriesMalformedJSON(t *testing.T) {
	m := &scriptedModel{replies: []string{"sure! here you go", `{"topic":"App"}`}}
	got, err := NewWithModel(m).Analyze(context.Background(), "aplikasi lemot")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if m.calls != 2 || got.Topic == nil || *got.Topic != "App" || got.Sentiment != nil {
		t.Fatalf("unexpected result after %d calls: %+v", m.calls, got)
	}
}

func TestAnalyze_GivesUpAfterAttempts(t *testing.T) {
	m := &scriptedModel{replies: []string{"nope"}}
	if _, err := NewWithModel(m).Analyze(context.Background(), "x"); err == nil {
		t.Fatalf("expected parse error")
	}
	if m.calls != 3 {
		t.Fatalf("calls = %d", m.calls)
	}
}

func TestAnalyze_TransportErrorNotRetried(t *testing.T) {
	m := &scriptedModel{err: errors.New("connection refused")}
	if _, err := NewWithModel(m).Analyze(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
	if m.calls != 1 {
		t.Fatalf("calls = %d", m.calls)
	}
}
