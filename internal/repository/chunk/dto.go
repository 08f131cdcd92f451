package chunk

import (
	"strconv"

	"github.com/kailas-cloud/playsearch/internal/db"
	domchunk "github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
)

// Stored chunk attributes.
const (
	fieldAssetID        = "asset_id"
	fieldAssetType      = "asset_type"
	fieldPlayID         = "play_id"
	fieldPlayTitle      = "play_title"
	fieldRepTitle       = "rep_title"
	fieldChunkText      = "chunk_text"
	fieldPageNumber     = "page_number"
	fieldTimestampStart = "timestamp_start"
	fieldTimestampEnd   = "timestamp_end"
	fieldSectionID      = "section_id"
	fieldHeading        = "heading"
	fieldFeedbackScore  = "feedback_score"
)

var returnFields = []string{
	fieldAssetID, fieldAssetType, fieldPlayID, fieldPlayTitle, fieldRepTitle,
	fieldChunkText, fieldPageNumber, fieldTimestampStart, fieldTimestampEnd,
	fieldSectionID, fieldHeading, fieldFeedbackScore,
}

func toChunks(sr *db.SearchResult) []domchunk.SourceChunk {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	out := make([]domchunk.SourceChunk, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, entryToChunk(e))
	}
	return out
}

func entryToChunk(e db.SearchEntry) domchunk.SourceChunk {
	f := e.Fields
	score := e.Score
	return domchunk.SourceChunk{
		AssetID:        f[fieldAssetID],
		AssetType:      domchunk.AssetType(f[fieldAssetType]),
		PlayID:         optString(f, fieldPlayID),
		PlayTitle:      f[fieldPlayTitle],
		RepTitle:       f[fieldRepTitle],
		ChunkText:      f[fieldChunkText],
		PageNumber:     optInt(f, fieldPageNumber),
		TimestampStart: optString(f, fieldTimestampStart),
		TimestampEnd:   optString(f, fieldTimestampEnd),
		Score:          &score,
		SectionID:      optString(f, fieldSectionID),
		Heading:        optString(f, fieldHeading),
		FeedbackScore:  optInt(f, fieldFeedbackScore),
	}
}

// optString treats absent and empty attributes as missing.
func optString(f map[string]string, key string) *string {
	v, ok := f[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}

func optInt(f map[string]string, key string) *int {
	v, ok := f[key]
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Weaviate returns numbers as floats
		fl, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return nil
		}
		n = int(fl)
	}
	return &n
}
