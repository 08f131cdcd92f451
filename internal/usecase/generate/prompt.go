package generate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
)

// InsufficientContext is the exact reply the grounded prompt asks for
// when the chunks cannot answer the query.
const InsufficientContext = "INSUFFICIENT_CONTEXT"

const groundedSystemPrompt = `You are a knowledgeable sales training assistant for an enterprise learning platform.

Your task is to answer the user's query using ONLY the context chunks provided below.

Rules:
1. Answer ONLY from the provided context. Do not use outside knowledge.
2. Add inline citations after each claim in this format:
   - For PDF content: [Source: {play_title} — {rep_title}, Page {page_number}]
   - For video/audio: [Source: {play_title} — {rep_title}, {timestamp_start}–{timestamp_end}]
   - For images: [Source: {play_title} — {rep_title}, Image]
   - For submissions: [Your submission — {rep_title}, Score: {feedback_score}/10]
3. If the context is insufficient to answer the question, respond with exactly: ` + InsufficientContext + `
4. Be concise and professional. Structure your answer clearly.
5. Do not fabricate information not present in the context.`

// Disclaimer closes every answer that is not grounded in assigned content.
const Disclaimer = "This response is based on general professional knowledge " +
	"and does not come from your assigned learning content."

const generalSystemPrompt = `You are a professional sales training coach.

Answer the following question using your general professional knowledge about sales, communication,
and business skills.

Add a disclaimer at the end: "` + Disclaimer + `"

Be concise and practical.`

// contextBlock renders chunks for the grounded prompt, numbered from 1.
func contextBlock(chunks []chunk.SourceChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf(
			"--- Chunk %d ---\nPlay: %s\nRep: %s\nType: %s %s\nContent: %s\n",
			i+1, c.PlayTitle, c.RepTitle, c.AssetType, citationHint(c), c.ChunkText,
		))
	}
	return strings.Join(parts, "\n")
}

// citationHint picks the location the model should cite: page, then time range, then score.
func citationHint(c chunk.SourceChunk) string {
	switch {
	case c.PageNumber != nil && *c.PageNumber != 0:
		return fmt.Sprintf("[Page %d]", *c.PageNumber)
	case c.TimestampStart != nil && *c.TimestampStart != "":
		end := ""
		if c.TimestampEnd != nil {
			end = *c.TimestampEnd
		}
		return fmt.Sprintf("[%s–%s]", *c.TimestampStart, end)
	case c.FeedbackScore != nil:
		return fmt.Sprintf("[Score: %d/10]", *c.FeedbackScore)
	default:
		return ""
	}
}

func groundedUserPrompt(query string, chunks []chunk.SourceChunk) string {
	return "Context chunks:\n" + contextBlock(chunks) + "\n\nUser query: " + query
}
