package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/playsearch/internal/db"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
)

const scoreField = "__vector_score"

// SearchKNN runs a filtered KNN vector similarity search via FT.SEARCH.
// Entries come back ordered by similarity, highest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	filterStr, err := buildFilter(q.Filter)
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	knnPart := fmt.Sprintf("[KNN %d @vector $BLOB]", q.K)
	var queryStr string
	switch q.Filter.(type) {
	case nil:
		queryStr = "*=>" + knnPart
	case filter.And, filter.Or:
		// groups are already parenthesized by the writer
		queryStr = filterStr + "=>" + knnPart
	default:
		queryStr = "(" + filterStr + ")=>" + knnPart
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		fields := q.ReturnFields
		if !slices.Contains(fields, scoreField) {
			fields = append(slices.Clone(fields), scoreField)
		}
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if scoreStr, ok := entry.Fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
			delete(entry.Fields, scoreField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

var errEmptyIn = errors.New("IN filter has no values")

// buildFilter translates a filter tree into an FT.SEARCH pre-filter query string.
// A nil node yields an empty string (no pre-filter).
func buildFilter(n filter.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	w := &queryWriter{}
	if err := n.Accept(w); err != nil {
		return "", err
	}
	return w.sb.String(), nil
}

// queryWriter serializes filter nodes into RediSearch query syntax:
// tag matches are @field:{value}, AND is juxtaposition, OR is |.
type queryWriter struct {
	sb strings.Builder
}

func (w *queryWriter) VisitEq(n filter.Eq) error {
	if err := checkField(n.Field); err != nil {
		return err
	}
	if n.Value == "" {
		return fmt.Errorf("empty value for field %q", n.Field)
	}
	w.sb.WriteString(buildTagFilter(n.Field, n.Value))
	return nil
}

func (w *queryWriter) VisitIn(n filter.In) error {
	if err := checkField(n.Field); err != nil {
		return err
	}
	// RediSearch has no "match nothing" literal, so an empty set is refused.
	if len(n.Values) == 0 {
		return fmt.Errorf("field %q: %w", n.Field, errEmptyIn)
	}
	escaped := make([]string, len(n.Values))
	for i, v := range n.Values {
		if v == "" {
			return fmt.Errorf("empty value for field %q", n.Field)
		}
		escaped[i] = tagEscaper.Replace(v)
	}
	fmt.Fprintf(&w.sb, "@%s:{%s}", n.Field, strings.Join(escaped, " | "))
	return nil
}

func (w *queryWriter) VisitAnd(n filter.And) error { return w.group(n.Nodes, " ") }

func (w *queryWriter) VisitOr(n filter.Or) error { return w.group(n.Nodes, " | ") }

func (w *queryWriter) group(nodes []filter.Node, sep string) error {
	if len(nodes) == 0 {
		return errors.New("empty filter group")
	}
	w.sb.WriteString("(")
	for i, child := range nodes {
		if i > 0 {
			w.sb.WriteString(sep)
		}
		if err := child.Accept(w); err != nil {
			return err
		}
	}
	w.sb.WriteString(")")
	return nil
}

func checkField(name string) error {
	if !db.IsValidIdentifier(name) {
		return fmt.Errorf("invalid filter field %q", name)
	}
	return nil
}

func buildTagFilter(key, value string) string {
	escaped := tagEscaper.Replace(value)
	return fmt.Sprintf("@%s:{%s}", key, escaped)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
