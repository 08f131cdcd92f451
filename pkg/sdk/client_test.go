package playsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://x"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q): expected error", raw)
		}
	}
}

func TestLogin_StoresToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			var req loginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode: %v", err)
			}
			if req.Username != "alice" || req.Password != "pw" {
				t.Errorf("login body = %+v", req)
			}
			writeJSON(w, http.StatusOK, Token{AccessToken: "tok-1", TokenType: "bearer", ExpiresIn: 3600})
		case "/auth/me":
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, User{UserID: "u1", CompanyID: "c1"})
		}
	})

	tok, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken != "tok-1" || c.Token() != "tok-1" {
		t.Fatalf("token = %q, client token = %q", tok.AccessToken, c.Token())
	}

	u, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if u.UserID != "u1" {
		t.Errorf("user = %+v", u)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"code": "invalid_credentials", "message": "Incorrect username or password",
		})
	}, WithToken("old"))

	_, err := c.Login(context.Background(), "alice", "bad")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected APIError 401, got %#v", err)
	}
	if c.Token() != "old" {
		t.Errorf("token replaced on failure: %q", c.Token())
	}
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req searchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "objection handling" || req.Mode != ModeKnowledge {
			t.Errorf("body = %+v", req)
		}
		writeJSON(w, http.StatusOK, SearchResponse{
			ResponseTier: "grounded",
			Answer:       "Acknowledge, then reframe.",
			Sources:      []SourceChunk{{AssetID: "a1", ChunkText: "..."}},
		})
	}, WithToken("t"))

	resp, err := c.Search(context.Background(), "objection handling", ModeKnowledge)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.ResponseTier != "grounded" || len(resp.Sources) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusUnauthorized, "unauthorized", ErrUnauthorized},
		{http.StatusBadRequest, "validation_failed", ErrInvalidQuery},
		{http.StatusTooManyRequests, "rate_limited", ErrRateLimited},
		{http.StatusPaymentRequired, "embedding_quota_exceeded", ErrEmbeddingQuotaExceeded},
		{http.StatusBadGateway, "retrieval_provider_error", ErrRetrievalProvider},
		{http.StatusBadGateway, "generation_provider_error", ErrGenerationProvider},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, map[string]string{"code": tt.code, "message": "nope"})
			})
			_, err := c.Search(context.Background(), "q", ModeAuto)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSearch_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	_, err := c.Search(context.Background(), "q", ModeAuto)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if IsRetryable(err) {
		t.Error("error without a code must not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&APIError{Code: "rate_limited"}) {
		t.Error("rate limited should be retryable")
	}
	if IsRetryable(&APIError{Code: "validation_failed"}) {
		t.Error("validation should not be retryable")
	}
}

func TestRecommendations_Limit(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, recommendationsResponse{
			Recommendations: []Recommendation{{PlayID: "p1", Status: "assigned"}},
		})
	})

	recs, err := c.Recommendations(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if gotQuery != "limit=5" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(recs) != 1 || recs[0].PlayID != "p1" {
		t.Errorf("recs = %+v", recs)
	}

	if _, err := c.Recommendations(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "" {
		t.Errorf("default limit should send no query, got %q", gotQuery)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, Health{
			Status: "error",
			Checks: map[string]HealthCheck{"store": "error"},
		})
	})

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "error" || h.Checks["store"] != "error" {
		t.Errorf("health = %+v", h)
	}
}

func writeFrames(w http.ResponseWriter, frames ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, f := range frames {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
		w.(http.Flusher).Flush()
	}
}

func TestStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/stream" || r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("unexpected request %s accept=%q", r.URL.Path, r.Header.Get("Accept"))
		}
		writeFrames(w,
			`{"type":"meta","intent":{"intent":"assigned_knowledge","confidence":0.9,"reasoning":""},`+
				`"response_tier":"grounded","sources":[{"asset_id":"a1"}],"recommendations":[]}`,
			`{"type":"chunk","content":"Hello "}`,
			`{"type":"chunk","content":"world"}`,
			`{"type":"done","is_insufficient":false}`,
		)
	})

	var types []EventType
	for ev, err := range c.Stream(context.Background(), "q", ModeAuto) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		types = append(types, ev.Type)
	}
	want := []EventType{EventMeta, EventChunk, EventChunk, EventDone}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
}

func TestStreamAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeFrames(w,
			`{"type":"meta","response_tier":"grounded","sources":[{"asset_id":"a1"}],"recommendations":[]}`,
			`{"type":"chunk","content":"Hello "}`,
			`{"type":"chunk","content":"world"}`,
			`{"type":"done","is_insufficient":true}`,
		)
	})

	a, err := c.StreamAnswer(context.Background(), "q", ModeAuto)
	if err != nil {
		t.Fatalf("StreamAnswer: %v", err)
	}
	if a.Text != "Hello world" || !a.IsInsufficient {
		t.Errorf("answer = %+v", a)
	}
	if a.Meta.ResponseTier != "grounded" || len(a.Meta.Sources) != 1 {
		t.Errorf("meta = %+v", a.Meta)
	}
}

func TestStream_ErrorFrame(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeFrames(w,
			`{"type":"meta","response_tier":"grounded","sources":[],"recommendations":[]}`,
			`{"type":"error","message":"The answer service is temporarily unavailable."}`,
		)
	})

	a, err := c.StreamAnswer(context.Background(), "q", ModeAuto)
	var serr *StreamError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if !strings.Contains(serr.Message, "unavailable") {
		t.Errorf("message = %q", serr.Message)
	}
	if a.Meta.Type != EventMeta {
		t.Errorf("meta not kept: %+v", a.Meta)
	}
}

func TestStream_Truncated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeFrames(w, `{"type":"meta","sources":[],"recommendations":[]}`)
	})

	_, err := c.StreamAnswer(context.Background(), "q", ModeAuto)
	if !errors.Is(err, errStreamTruncated) {
		t.Fatalf("expected truncated error, got %v", err)
	}
}

func TestStream_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"code": "rate_limited", "message": "Rate limit exceeded"})
	})

	n := 0
	for _, err := range c.Stream(context.Background(), "q", ModeAuto) {
		n++
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	}
	if n != 1 {
		t.Errorf("yielded %d times, want 1", n)
	}
}

func TestStream_EarlyBreak(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeFrames(w,
			`{"type":"meta","sources":[],"recommendations":[]}`,
			`{"type":"chunk","content":"a"}`,
			`{"type":"chunk","content":"b"}`,
			`{"type":"done"}`,
		)
	})

	n := 0
	for range c.Stream(context.Background(), "q", ModeAuto) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("n = %d", n)
	}
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			writeJSON(w, http.StatusOK, SearchResponse{})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "not found"})
	}, WithPrometheus(reg))

	_, _ = c.Search(context.Background(), "q", ModeAuto)
	_, _ = c.Me(context.Background())

	if got := testutil.ToFloat64(c.obs.metrics.requests.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok = %v", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.requests.WithLabelValues("me", "not_found")); got != 1 {
		t.Errorf("me not_found = %v", got)
	}

	// second client on the same registry reuses the collectors
	if _, err := New("http://localhost", WithPrometheus(reg)); err != nil {
		t.Fatalf("reuse registry: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&APIError{Status: 429, Code: "rate_limited"}, "rate_limited"},
		{&APIError{Status: 502}, "http_502"},
		{&StreamError{Message: "x"}, "stream_error"},
		{fmt.Errorf("wrap: %w", context.Canceled), "canceled"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("dial tcp: refused"), "transport_error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
