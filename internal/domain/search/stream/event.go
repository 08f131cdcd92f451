package stream

import (
	"encoding/json"

	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
)

// Type discriminates stream frames.
type Type string

// Frame types, in protocol order: one meta, any number of chunks,
// then exactly one of done or error.
const (
	TypeMeta  Type = "meta"
	TypeChunk Type = "chunk"
	TypeDone  Type = "done"
	TypeError Type = "error"
)

// Event is a single frame of the search stream. Only the fields of its Type are set.
type Event struct {
	Type Type

	Intent          intent.Result
	ResponseTier    response.Tier
	Sources         []chunk.SourceChunk
	Recommendations []response.Recommendation

	Content        string
	IsInsufficient bool
	Message        string
}

type metaFrame struct {
	Type            Type                      `json:"type"`
	Intent          intent.Result             `json:"intent"`
	ResponseTier    response.Tier             `json:"response_tier"`
	Sources         []chunk.SourceChunk       `json:"sources"`
	Recommendations []response.Recommendation `json:"recommendations"`
}

type chunkFrame struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
}

type doneFrame struct {
	Type           Type `json:"type"`
	IsInsufficient bool `json:"is_insufficient"`
}

type errorFrame struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// MarshalJSON encodes only the fields that belong to the frame type.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case TypeMeta:
		sources, recs := e.Sources, e.Recommendations
		if sources == nil {
			sources = []chunk.SourceChunk{}
		}
		if recs == nil {
			recs = []response.Recommendation{}
		}
		return json.Marshal(metaFrame{
			Type: e.Type, Intent: e.Intent, ResponseTier: e.ResponseTier,
			Sources: sources, Recommendations: recs,
		})
	case TypeChunk:
		return json.Marshal(chunkFrame{Type: e.Type, Content: e.Content})
	case TypeDone:
		return json.Marshal(doneFrame{Type: e.Type, IsInsufficient: e.IsInsufficient})
	default:
		return json.Marshal(errorFrame{Type: TypeError, Message: e.Message})
	}
}

type wireFrame struct {
	Type            Type                      `json:"type"`
	Intent          intent.Result             `json:"intent"`
	ResponseTier    response.Tier             `json:"response_tier"`
	Sources         []chunk.SourceChunk       `json:"sources"`
	Recommendations []response.Recommendation `json:"recommendations"`
	Content         string                    `json:"content"`
	IsInsufficient  bool                      `json:"is_insufficient"`
	Message         string                    `json:"message"`
}

// UnmarshalJSON decodes any frame type.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event(w)
	return nil
}

// Meta builds the opening frame.
func Meta(
	res intent.Result, tier response.Tier,
	sources []chunk.SourceChunk, recs []response.Recommendation,
) Event {
	return Event{
		Type:            TypeMeta,
		Intent:          res,
		ResponseTier:    tier,
		Sources:         sources,
		Recommendations: recs,
	}
}

// Chunk builds a text increment frame.
func Chunk(content string) Event {
	return Event{Type: TypeChunk, Content: content}
}

// Done builds the terminal success frame.
func Done(insufficient bool) Event {
	return Event{Type: TypeDone, IsInsufficient: insufficient}
}

// Error builds the terminal failure frame.
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// IsTerminal reports whether the frame ends the stream.
func (e Event) IsTerminal() bool {
	return e.Type == TypeDone || e.Type == TypeError
}
