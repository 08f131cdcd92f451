package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
)

// --- Mocks ---

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct{ err error }

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type snapshot struct{ c *catalog.Catalog }

func (s snapshot) Current() *catalog.Catalog { return s.c }

func loaded() snapshot {
	c, _ := catalog.New(catalog.Data{
		Companies: []catalog.Company{{ID: "acme"}},
		Plays:     []catalog.Play{{ID: "p1"}, {ID: "p2"}},
	})
	return snapshot{c}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(loaded(),
		PingCheck("vector_index", &mockPinger{}, true),
		PingCheck("catalog_db", &mockPinger{}, false),
		EmbeddingCheck(&mockEmbeddingChecker{}),
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"catalog", "vector_index", "catalog_db", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("%s = %q", name, r.Checks[name])
		}
	}
	if r.Catalog == nil || r.Catalog.Plays != 2 || r.Catalog.Companies != 1 {
		t.Errorf("catalog stats = %+v", r.Catalog)
	}
}

func TestCheck_OptionalFailureDegrades(t *testing.T) {
	svc := New(loaded(),
		PingCheck("vector_index", &mockPinger{}, true),
		EmbeddingCheck(&mockEmbeddingChecker{err: errors.New("timeout")}),
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["embedding"] != CheckError || r.Checks["vector_index"] != CheckOK {
		t.Errorf("checks = %v", r.Checks)
	}
}

func TestCheck_RequiredFailureIsUnhealthy(t *testing.T) {
	svc := New(loaded(),
		PingCheck("vector_index", &mockPinger{err: errors.New("conn refused")}, true),
		EmbeddingCheck(&mockEmbeddingChecker{err: errors.New("timeout")}),
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_CatalogNotLoaded(t *testing.T) {
	r := New(snapshot{}, PingCheck("vector_index", &mockPinger{}, true)).Check(context.Background())

	if r.Status != Unhealthy || r.Checks["catalog"] != CheckError || r.Catalog != nil {
		t.Errorf("report = %+v", r)
	}
}

func TestCheck_NilProbeFails(t *testing.T) {
	r := New(loaded(), Check{Name: "broken"}).Check(context.Background())
	if r.Checks["broken"] != CheckError || r.Status != Degraded {
		t.Errorf("report = %+v", r)
	}
}
