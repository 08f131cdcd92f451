package chunk

// AssetType is the kind of media a chunk was extracted from.
type AssetType string

// Asset types.
const (
	AssetPDF   AssetType = "pdf"
	AssetVideo AssetType = "video"
	AssetAudio AssetType = "audio"
	AssetImage AssetType = "image"
)

// SourceChunk is a retrieved unit of content with its citation metadata.
// Optional fields are nil when the source has no such location.
type SourceChunk struct {
	AssetID        string    `json:"asset_id"`
	AssetType      AssetType `json:"asset_type"`
	PlayID         *string   `json:"play_id"`
	PlayTitle      string    `json:"play_title"`
	RepTitle       string    `json:"rep_title"`
	ChunkText      string    `json:"chunk_text"`
	PageNumber     *int      `json:"page_number"`
	TimestampStart *string   `json:"timestamp_start"`
	TimestampEnd   *string   `json:"timestamp_end"`
	Score          *float64  `json:"score"`
	SectionID      *string   `json:"section_id"`
	Heading        *string   `json:"heading"`
	FeedbackScore  *int      `json:"feedback_score"`
}

// PlayIDs returns the distinct non-nil play ids in first-seen order.
func PlayIDs(chunks []SourceChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.PlayID == nil {
			continue
		}
		if _, ok := seen[*c.PlayID]; ok {
			continue
		}
		seen[*c.PlayID] = struct{}{}
		ids = append(ids, *c.PlayID)
	}
	return ids
}
