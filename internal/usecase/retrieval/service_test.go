package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
)

// --- Mocks ---

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

type mockSearcher struct {
	out    []chunk.SourceChunk
	err    error
	calls  int
	filter filter.Node
	k      int
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, f filter.Node, k int) ([]chunk.SourceChunk, error) {
	m.calls++
	m.filter, m.k = f, k
	return m.out, m.err
}

func scored(id string, score float64) chunk.SourceChunk {
	p := "p1"
	return chunk.SourceChunk{AssetID: id, PlayID: &p, Score: &score}
}

func testUser(plays ...string) *user.Context {
	u := &user.Context{UserID: "u1", CompanyID: "acme"}
	for _, p := range plays {
		u.AssignedPlays = append(u.AssignedPlays, user.AssignedPlay{PlayID: p, PlayTitle: p, Status: "assigned"})
	}
	return u
}

// --- Tests ---

func TestRetrieve_ShortCircuitWithoutAssignments(t *testing.T) {
	for _, in := range []intent.Intent{intent.AssignedKnowledge, intent.Combined, intent.GeneralProfessional} {
		t.Run(string(in), func(t *testing.T) {
			emb, srch := &mockEmbedder{}, &mockSearcher{}
			svc := New(srch, emb, Config{}, zap.NewNop())

			got, err := svc.Retrieve(context.Background(), testUser(), in, "What is GridMaster?")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected empty result, got %d", len(got))
			}
			if emb.calls != 0 || srch.calls != 0 {
				t.Errorf("expected zero provider calls, got embed=%d search=%d", emb.calls, srch.calls)
			}
		})
	}
}

func TestRetrieve_PerformanceHistoryIgnoresAssignments(t *testing.T) {
	emb, srch := &mockEmbedder{}, &mockSearcher{out: []chunk.SourceChunk{scored("s", 0.9)}}
	svc := New(srch, emb, Config{}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), testUser(), intent.PerformanceHistory, "How did I do?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || srch.calls != 1 {
		t.Fatalf("expected search to run, got %d chunks, %d calls", len(got), srch.calls)
	}
}

func TestRetrieve_ThresholdAndOrder(t *testing.T) {
	srch := &mockSearcher{out: []chunk.SourceChunk{
		scored("a", 0.6), scored("b", 0.4), scored("c", 0.35), scored("d", 0.2),
	}}
	svc := New(srch, &mockEmbedder{}, Config{Threshold: DefaultThreshold}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), testUser("p1"), intent.AssignedKnowledge, "What is GridMaster?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, c := range got {
		ids = append(ids, c.AssetID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("kept = %v, want [a b c]", ids)
	}
	if srch.k != DefaultTopK {
		t.Errorf("k = %d, want %d", srch.k, DefaultTopK)
	}
	if !filter.HasCompanyFence(srch.filter, "acme") {
		t.Errorf("search ran without company fence: %s", filter.String(srch.filter))
	}
}

func TestRetrieve_CustomConfig(t *testing.T) {
	srch := &mockSearcher{out: []chunk.SourceChunk{scored("a", 0.6), scored("b", 0.4)}}
	svc := New(srch, &mockEmbedder{}, Config{TopK: 2, Threshold: 0.5}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), testUser("p1"), intent.AssignedKnowledge, "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || srch.k != 2 {
		t.Errorf("got %d chunks with k=%d", len(got), srch.k)
	}
}

func TestRetrieve_ZeroThresholdKeepsEveryScoredHit(t *testing.T) {
	unscored := chunk.SourceChunk{AssetID: "n"}
	srch := &mockSearcher{out: []chunk.SourceChunk{scored("a", 0.6), scored("z", 0), unscored}}
	svc := New(srch, &mockEmbedder{}, Config{Threshold: 0}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), testUser("p1"), intent.AssignedKnowledge, "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].AssetID != "a" || got[1].AssetID != "z" {
		t.Errorf("kept = %+v, want [a z]", got)
	}
}

func TestRetrieve_ProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		emb  *mockEmbedder
		srch *mockSearcher
	}{
		{"embedding", &mockEmbedder{err: errors.New("429")}, &mockSearcher{}},
		{"index", &mockEmbedder{}, &mockSearcher{err: errors.New("index gone")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.srch, tt.emb, Config{}, zap.NewNop())
			_, err := svc.Retrieve(context.Background(), testUser("p1"), intent.AssignedKnowledge, "q")
			if !errors.Is(err, domain.ErrRetrievalProvider) {
				t.Fatalf("expected ErrRetrievalProvider, got %v", err)
			}
		})
	}
}

func TestRetrieve_RefusesUnscopedContext(t *testing.T) {
	emb, srch := &mockEmbedder{}, &mockSearcher{}
	svc := New(srch, emb, Config{}, zap.NewNop())

	u := testUser("p1")
	u.CompanyID = ""
	_, err := svc.Retrieve(context.Background(), u, intent.AssignedKnowledge, "q")
	if !errors.Is(err, domain.ErrFilterUnscoped) {
		t.Fatalf("expected ErrFilterUnscoped, got %v", err)
	}
	if emb.calls != 0 || srch.calls != 0 {
		t.Error("no provider call may happen for an unscoped filter")
	}
}

func TestRetrieve_RefusesEmptyAllowList(t *testing.T) {
	tests := []struct {
		name string
		in   intent.Intent
	}{
		{"knowledge", intent.AssignedKnowledge},
		{"combined", intent.Combined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, srch := &mockEmbedder{}, &mockSearcher{}
			svc := New(srch, emb, Config{}, zap.NewNop())

			// an assignment row without a play id leaves nothing to match
			u := testUser("")
			_, err := svc.Retrieve(context.Background(), u, tt.in, "q")
			if !errors.Is(err, domain.ErrFilterUnscoped) {
				t.Fatalf("expected ErrFilterUnscoped, got %v", err)
			}
			if emb.calls != 0 || srch.calls != 0 {
				t.Error("no provider call may happen for an empty allow-list")
			}
		})
	}
}
