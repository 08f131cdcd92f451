package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/metrics"
)

// --- Mocks ---

type mockCompleter struct {
	out  string
	err  error
	msgs []domain.Message
	opts domain.GenerateOptions
}

func (m *mockCompleter) Complete(
	_ context.Context, msgs []domain.Message, opts domain.GenerateOptions,
) (string, error) {
	m.msgs, m.opts = msgs, opts
	return m.out, m.err
}

// --- Tests ---

func TestClassify_Success(t *testing.T) {
	llm := &mockCompleter{out: `{"intent":"assigned_knowledge","confidence":0.95,"reasoning":"product question"}`}
	svc := New(llm, zap.NewNop())

	res, err := svc.Classify(context.Background(), "What is GridMaster?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != intent.AssignedKnowledge || res.Confidence != 0.95 || res.Reasoning != "product question" {
		t.Errorf("unexpected result: %+v", res)
	}

	if len(llm.msgs) != 2 || llm.msgs[0].Role != domain.RoleSystem || llm.msgs[1].Role != domain.RoleUser {
		t.Fatalf("unexpected messages: %+v", llm.msgs)
	}
	if !strings.HasSuffix(llm.msgs[1].Content, "Query: What is GridMaster?") {
		t.Errorf("user message should end with the query: %q", llm.msgs[1].Content)
	}
	if !strings.Contains(llm.msgs[1].Content, "Tell me a joke") {
		t.Error("few-shot examples missing")
	}
	if llm.opts.MaxTokens != 256 || llm.opts.Temperature != 0 {
		t.Errorf("unexpected options: %+v", llm.opts)
	}
}

func TestClassify_FallbackOnGarbage(t *testing.T) {
	before := testutil.ToFloat64(metrics.ClassificationFallbackTotal)

	svc := New(&mockCompleter{out: "I think this is about sales"}, zap.NewNop())
	res, err := svc.Classify(context.Background(), "q")
	if err != nil {
		t.Fatalf("parse failures must not surface: %v", err)
	}
	if res != intent.Fallback() {
		t.Errorf("expected fallback, got %+v", res)
	}

	if got := testutil.ToFloat64(metrics.ClassificationFallbackTotal); got != before+1 {
		t.Errorf("fallback counter = %v, want %v", got, before+1)
	}
}

func TestClassify_ProviderError(t *testing.T) {
	svc := New(&mockCompleter{err: errors.New("503")}, zap.NewNop())

	_, err := svc.Classify(context.Background(), "q")
	if !errors.Is(err, domain.ErrGenerationProvider) {
		t.Fatalf("expected ErrGenerationProvider, got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    intent.Result
		wantErr bool
	}{
		{
			name: "plain",
			raw:  `{"intent":"combined","confidence":0.7,"reasoning":"both"}`,
			want: intent.Result{Intent: intent.Combined, Confidence: 0.7, Reasoning: "both"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"intent\":\"out_of_scope\",\"confidence\":0.99}\n```",
			want: intent.Result{Intent: intent.OutOfScope, Confidence: 0.99},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"intent\":\"performance_history\",\"confidence\":0.8,\"reasoning\":\"x\"}\n```",
			want: intent.Result{Intent: intent.PerformanceHistory, Confidence: 0.8, Reasoning: "x"},
		},
		{
			name: "missing confidence defaults",
			raw:  `{"intent":"general_professional"}`,
			want: intent.Result{Intent: intent.GeneralProfessional, Confidence: 0.9},
		},
		{
			name: "explicit zero confidence kept",
			raw:  `{"intent":"general_professional","confidence":0}`,
			want: intent.Result{Intent: intent.GeneralProfessional, Confidence: 0},
		},
		{name: "unknown intent", raw: `{"intent":"weather","confidence":0.9}`, wantErr: true},
		{name: "confidence above one", raw: `{"intent":"combined","confidence":1.5}`, wantErr: true},
		{name: "negative confidence", raw: `{"intent":"combined","confidence":-0.1}`, wantErr: true},
		{name: "not json", raw: "combined", wantErr: true},
		{name: "empty fence", raw: "```", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
