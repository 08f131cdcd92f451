package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/kailas-cloud/playsearch/internal/db"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
)

// Compile-time check: Store serves retrieval.
var _ db.Searcher = (*Store)(nil)

// Config holds connection parameters for a Weaviate instance.
type Config struct {
	URL    string // http://host:8080
	APIKey string
}

// Store implements db.Searcher over Weaviate nearVector queries.
// KNNQuery.IndexName is the Weaviate class name.
type Store struct {
	client *weaviate.Client
}

// NewStore creates a Weaviate-backed searcher.
func NewStore(cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", cfg.URL)
	}

	wcfg := weaviate.Config{
		Host:   u.Host,
		Scheme: u.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping checks the instance is ready to serve queries.
func (s *Store) Ping(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("ready check: %w", err)
	}
	if !ready {
		return errors.New("weaviate not ready")
	}
	return nil
}

// SearchKNN runs a filtered nearVector query. Weaviate returns hits ordered by distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("class name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	fields := make([]graphql.Field, 0, len(q.ReturnFields)+1)
	for _, f := range q.ReturnFields {
		fields = append(fields, graphql.Field{Name: f})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "distance"},
	}})

	get := s.client.GraphQL().Get().
		WithClassName(q.IndexName).
		WithFields(fields...).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(q.Vector)).
		WithLimit(q.K)

	if q.Filter != nil {
		where, err := buildWhere(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("build filter: %w", err)
		}
		get = get.WithWhere(where)
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpGraphQL, Err: err}
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &db.Error{Op: db.OpGraphQL, Err: errors.New(strings.Join(msgs, "; "))}
	}

	return parseResponse(resp, q.IndexName)
}

type getResponse struct {
	Get map[string][]map[string]any `json:"Get"`
}

type additional struct {
	ID       string   `json:"id"`
	Distance *float64 `json:"distance"`
}

func parseResponse(resp *models.GraphQLResponse, class string) (*db.SearchResult, error) {
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal response data: %w", err)
	}
	var parsed getResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response data: %w", err)
	}

	objects := parsed.Get[class]
	entries := make([]db.SearchEntry, 0, len(objects))
	for _, obj := range objects {
		entry := db.SearchEntry{Fields: make(map[string]string, len(obj))}
		for k, v := range obj {
			if k == "_additional" {
				add, err := decodeAdditional(v)
				if err != nil {
					return nil, err
				}
				entry.Key = add.ID
				if add.Distance != nil {
					entry.Score = max(0, 1.0-*add.Distance)
				}
				continue
			}
			if s, ok := stringify(v); ok {
				entry.Fields[k] = s
			}
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func decodeAdditional(v any) (additional, error) {
	var add additional
	raw, err := json.Marshal(v)
	if err != nil {
		return add, fmt.Errorf("marshal _additional: %w", err)
	}
	if err := json.Unmarshal(raw, &add); err != nil {
		return add, fmt.Errorf("unmarshal _additional: %w", err)
	}
	return add, nil
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// --- Filter building ---

// buildWhere translates a filter tree into a Weaviate where clause.
// In becomes an Or of Equal operands; an empty set is refused.
func buildWhere(n filter.Node) (*filters.WhereBuilder, error) {
	w := &whereWriter{}
	if err := n.Accept(w); err != nil {
		return nil, err
	}
	return w.out, nil
}

type whereWriter struct {
	out *filters.WhereBuilder
}

func (w *whereWriter) VisitEq(n filter.Eq) error {
	if n.Field == "" || n.Value == "" {
		return fmt.Errorf("incomplete equality on field %q", n.Field)
	}
	w.out = equal(n.Field, n.Value)
	return nil
}

func (w *whereWriter) VisitIn(n filter.In) error {
	if len(n.Values) == 0 {
		return fmt.Errorf("IN filter on %q has no values", n.Field)
	}
	if len(n.Values) == 1 {
		w.out = equal(n.Field, n.Values[0])
		return nil
	}
	operands := make([]*filters.WhereBuilder, 0, len(n.Values))
	for _, v := range n.Values {
		operands = append(operands, equal(n.Field, v))
	}
	w.out = filters.Where().WithOperator(filters.Or).WithOperands(operands)
	return nil
}

func (w *whereWriter) VisitAnd(n filter.And) error { return w.group(filters.And, n.Nodes) }

func (w *whereWriter) VisitOr(n filter.Or) error { return w.group(filters.Or, n.Nodes) }

func (w *whereWriter) group(op filters.WhereOperator, nodes []filter.Node) error {
	if len(nodes) == 0 {
		return errors.New("empty filter group")
	}
	operands := make([]*filters.WhereBuilder, 0, len(nodes))
	for _, child := range nodes {
		built, err := buildWhere(child)
		if err != nil {
			return err
		}
		operands = append(operands, built)
	}
	w.out = filters.Where().WithOperator(op).WithOperands(operands)
	return nil
}

func equal(field, value string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{field}).
		WithOperator(filters.Equal).
		WithValueText(value)
}
