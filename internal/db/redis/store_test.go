package redis

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/playsearch/internal/db"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"Index Already Exists", "index already exists", true},
		{"UNKNOWN INDEX NAME", "unknown index name", true},
		{"hello world", "world", true},
		{"short", "longer than input", false},
		{"exact", "exact", true},
		{"", "", true},
		{"notempty", "", true},
	}
	for _, tc := range tests {
		got := containsIgnoreCase(tc.s, tc.sub)
		if got != tc.want {
			t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tc.s, tc.sub, got, tc.want)
		}
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "mykey", []byte("myvalue")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "mykey" && cmd[2] == "myvalue"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), 60*1e9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "counter", "5")).
		Return(mock.Result(mock.RedisInt64(5)))

	s := NewStoreForTest(c)
	if err := s.IncrBy(context.Background(), "counter", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_WithoutNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "EXPIRE" && cmd[1] == "mykey"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", 300*1e9, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_WithNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "EXPIRE" || cmd[1] != "mykey" {
				return false
			}
			// Should have NX flag
			for _, arg := range cmd {
				if arg == "NX" {
					return true
				}
			}
			return false
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", 300*1e9, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_ChunkSchema(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	idx, err := db.NewIndex("playsearch:chunks").
		Prefix("playsearch:chunk:").
		Tags("company_id", "content_type").
		HNSW("vector", 4, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := s.CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"FT.CREATE", "playsearch:chunks", "ON", "HASH", "PREFIX", "1", "playsearch:chunk:", "SCHEMA",
		"company_id", "TAG", "content_type", "TAG",
		"vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32", "DIM", "4", "DISTANCE_METRIC", "COSINE", "M", "16", "EF_CONSTRUCTION", "200",
	}
	if !slices.Equal(got, want) {
		t.Errorf("FT.CREATE args =\n%v\nwant\n%v", got, want)
	}
}


func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	idx := testIndex()
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	idx := testIndex()
	err := s.CreateIndex(context.Background(), idx)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDropIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "test:idx")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.DropIndex(context.Background(), "test:idx"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	err := s.DropIndex(context.Background(), "test:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists_True(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("test:idx"))))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true")
	}
}

func TestIndexExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

func testIndex() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name: "test:idx",
		Fields: []db.IndexField{
			{Name: "company_id", Kind: db.FieldTag},
			{Name: "vector", Kind: db.FieldVector, Vector: &db.VectorSpec{
				Algorithm: db.VectorFlat, Dim: 4, Distance: db.DistanceCosine,
			}},
		},
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	s := NewStoreForTest(c)

	// no vector field: rejected before any command is sent
	idx := &db.IndexDefinition{Name: "test:idx", Fields: []db.IndexField{{Name: "f", Kind: db.FieldTag}}}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func assertContains(t *testing.T, args []string, want string) {
	t.Helper()
	for _, a := range args {
		if a == want {
			return
		}
	}
	t.Errorf("expected %q in args %v", want, args)
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2), // total
			mock.RedisString("chunk:1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.4"), // distance 0.4 → similarity 0.6
				mock.RedisString("chunk_text"),
				mock.RedisString("GridMaster overview"),
			),
			mock.RedisString("chunk:2"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.6"),
				mock.RedisString("chunk_text"),
				mock.RedisString("Pricing"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		Filter:       filter.NewAnd(filter.CompanyFence("acme"), filter.Eq{Field: "content_type", Value: "knowledge"}),
		Vector:       []float32{0.1, 0.2},
		K:            6,
		ReturnFields: []string{"chunk_text"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Key != "chunk:1" || result.Entries[1].Key != "chunk:2" {
		t.Errorf("order not preserved: %+v", result.Entries)
	}
	if result.Entries[0].Score < 0.59 || result.Entries[0].Score > 0.61 {
		t.Errorf("expected score ~0.6, got %f", result.Entries[0].Score)
	}
	if _, ok := result.Entries[0].Fields["__vector_score"]; ok {
		t.Error("score field should be stripped from fields")
	}

	if got[2] != "(@company_id:{acme} @content_type:{knowledge})=>[KNN 6 @vector $BLOB]" {
		t.Errorf("unexpected query: %q", got[2])
	}
	assertContains(t, got, "SORTBY")
	assertContains(t, got, "__vector_score")
	assertContains(t, got, "DIALECT")
}

func TestSearchKNN_QueryShape(t *testing.T) {
	tests := []struct {
		name   string
		filter filter.Node
		want   string
	}{
		{"no filter", nil, "*=>[KNN 3 @vector $BLOB]"},
		{"bare eq", filter.CompanyFence("acme"), "(@company_id:{acme})=>[KNN 3 @vector $BLOB]"},
		{"bare in", filter.In{Field: "play_id", Values: []string{"p1", "p2"}}, "(@play_id:{p1 | p2})=>[KNN 3 @vector $BLOB]"},
		{"and", filter.NewAnd(filter.CompanyFence("acme")), "(@company_id:{acme})=>[KNN 3 @vector $BLOB]"},
		{
			"or",
			filter.NewOr(filter.CompanyFence("acme"), filter.CompanyFence("beta")),
			"(@company_id:{acme} | @company_id:{beta})=>[KNN 3 @vector $BLOB]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			var got []string
			c.EXPECT().
				Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
					got = cmd
					return cmd[0] == "FT.SEARCH"
				})).
				Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

			s := NewStoreForTest(c)
			_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
				IndexName: "idx",
				Filter:    tt.filter,
				Vector:    []float32{0.1},
				K:         3,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got[2] != tt.want {
				t.Errorf("query = %q, want %q", got[2], tt.want)
			}
		})
	}
}

func TestSearchKNN_IndexMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("idx: no such index")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         6,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_BadFilter(t *testing.T) {
	s := &Store{}
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Filter:    filter.NewAnd(filter.CompanyFence("acme"), filter.In{Field: "play_id"}),
		Vector:    []float32{0.1},
		K:         6,
	})
	if !errors.Is(err, errEmptyIn) {
		t.Errorf("expected errEmptyIn, got %v", err)
	}
}


func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10})
	if err == nil {
		t.Error("expected error for empty index name")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10})
	if err == nil {
		t.Error("expected error for empty vector")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 0})
	if err == nil {
		t.Error("expected error for k=0")
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.0, 2.0}
	b := vectorToBytes(v)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

// --- Filter building tests ---

func TestBuildFilter_Nil(t *testing.T) {
	result, err := buildFilter(nil)
	if err != nil || result != "" {
		t.Errorf("expected empty string, got %q, %v", result, err)
	}
}

func TestBuildFilter_Shapes(t *testing.T) {
	knowledge := filter.NewAnd(
		filter.Eq{Field: "content_type", Value: "knowledge"},
		filter.In{Field: "play_id", Values: []string{"p1", "p2"}},
	)
	submission := filter.NewAnd(
		filter.Eq{Field: "content_type", Value: "submission"},
		filter.Eq{Field: "user_id", Value: "u1"},
	)

	tests := []struct {
		name string
		node filter.Node
		want string
	}{
		{
			name: "knowledge",
			node: filter.NewAnd(filter.CompanyFence("acme"), knowledge.Nodes[0], knowledge.Nodes[1]),
			want: `(@company_id:{acme} @content_type:{knowledge} @play_id:{p1 | p2})`,
		},
		{
			name: "submission",
			node: filter.NewAnd(filter.CompanyFence("acme"), submission.Nodes[0], submission.Nodes[1]),
			want: `(@company_id:{acme} @content_type:{submission} @user_id:{u1})`,
		},
		{
			name: "combined",
			node: filter.NewAnd(filter.CompanyFence("acme"), filter.NewOr(knowledge, submission)),
			want: `(@company_id:{acme} ((@content_type:{knowledge} @play_id:{p1 | p2}) | ` +
				`(@content_type:{submission} @user_id:{u1})))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildFilter(tt.node)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildFilter() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBuildFilter_EscapesTagValues(t *testing.T) {
	got, err := buildFilter(filter.NewAnd(filter.CompanyFence("acme-co|x} @user_id:{*")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `(@company_id:{acme\-co\|x\}\ \@user_id\:\{\*})`
	if got != want {
		t.Errorf("buildFilter() = %s, want %s", got, want)
	}
}

func TestBuildFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		node filter.Node
	}{
		{"empty in", filter.In{Field: "play_id"}},
		{"empty and", filter.NewAnd()},
		{"empty or", filter.NewOr()},
		{"empty value", filter.Eq{Field: "company_id"}},
		{"bad field", filter.Eq{Field: "company id", Value: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildFilter(tt.node); err == nil {
				t.Error("expected error")
			}
		})
	}
}
