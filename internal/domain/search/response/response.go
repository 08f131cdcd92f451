package response

import (
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
)

// Tier is the terminal state a search resolved to.
type Tier string

// Response tiers.
const (
	// Tier1 is the out-of-scope refusal.
	Tier1 Tier = "tier1"
	// Tier2 is an open-domain answer not grounded in assigned content.
	Tier2 Tier = "tier2"
	// Tier3 means nothing relevant was found in assigned content.
	Tier3 Tier = "tier3"
	// Grounded is an answer built from retrieved chunks.
	Grounded Tier = "grounded"
)

// Canned answers.
const (
	OutOfScopeAnswer = "I am a specialized search engine for your assigned BigSpring materials. " +
		"I cannot assist with queries outside of your professional scope."
	NotFoundAnswer = "I couldn't find any specific information in your assigned training materials " +
		"that addresses this query. This may be because the topic isn't covered in your current plays, " +
		"or your query may be too specific. Try rephrasing your question or explore the recommendations below."
)

// Recommendation suggests an assigned play to look at next.
type Recommendation struct {
	PlayID    string  `json:"play_id"`
	PlayTitle string  `json:"play_title"`
	RepID     *string `json:"rep_id"`
	RepTitle  *string `json:"rep_title"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason"`
}

// SearchResponse is the aggregate result of one search.
type SearchResponse struct {
	Intent          intent.Result       `json:"intent"`
	ResponseTier    Tier                `json:"response_tier"`
	Answer          string              `json:"answer"`
	Sources         []chunk.SourceChunk `json:"sources"`
	Recommendations []Recommendation    `json:"recommendations"`
}
