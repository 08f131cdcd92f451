package recommend

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
)

// DefaultMaxResults applies when the caller asks for zero or fewer.
const DefaultMaxResults = 3

// Service ranks the user's assigned plays as next steps. No provider calls.
type Service struct {
	catalog CatalogSource
}

// New creates a recommender over the catalog snapshot.
func New(src CatalogSource) *Service {
	return &Service{catalog: src}
}

// Recommend returns up to maxResults assigned plays not in exclude. Plays
// whose titles share words with query come first, then by progress status.
func (s *Service) Recommend(
	u *user.Context, exclude map[string]struct{}, query string, maxResults int,
) []response.Recommendation {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	words := wordSet(query)
	candidates := make([]user.AssignedPlay, 0, len(u.AssignedPlays))
	for _, ap := range u.AssignedPlays {
		if _, ok := exclude[ap.PlayID]; ok {
			continue
		}
		candidates = append(candidates, ap)
	}
	slices.SortStableFunc(candidates, func(a, b user.AssignedPlay) int {
		if c := cmp.Compare(overlap(words, b.PlayTitle), overlap(words, a.PlayTitle)); c != 0 {
			return c
		}
		return cmp.Compare(statusRank(a.Status), statusRank(b.Status))
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	snap := s.catalog.Current()
	recs := make([]response.Recommendation, 0, len(candidates))
	for _, ap := range candidates {
		rec := response.Recommendation{
			PlayID:    ap.PlayID,
			PlayTitle: ap.PlayTitle,
			Status:    ap.Status,
			Reason:    reason(ap, overlap(words, ap.PlayTitle)),
		}
		if rep, ok := nextRep(snap, ap.PlayID); ok {
			rec.RepID = &rep.ID
			rec.RepTitle = &rep.PromptTitle
		}
		recs = append(recs, rec)
	}
	return recs
}

// nextRep picks the first "watch" rep of the play, else its first rep.
func nextRep(snap *catalog.Catalog, playID string) (catalog.Rep, bool) {
	if snap == nil {
		return catalog.Rep{}, false
	}
	reps := snap.RepsForPlay(playID)
	if len(reps) == 0 {
		return catalog.Rep{}, false
	}
	for _, r := range reps {
		if r.PromptType == catalog.PromptTypeWatch {
			return r, true
		}
	}
	return reps[0], true
}

func statusRank(status string) int {
	switch strings.ToLower(status) {
	case "in_progress", "in-progress":
		return 0
	case "assigned":
		return 1
	case "completed":
		return 2
	default:
		return 3
	}
}

func reason(ap user.AssignedPlay, relevance int) string {
	switch {
	case relevance > 0:
		return fmt.Sprintf("'%s' covers content related to your query.", ap.PlayTitle)
	case ap.Status == "in_progress" || ap.Status == "in-progress":
		return fmt.Sprintf("You are currently working through '%s'. Continue where you left off.", ap.PlayTitle)
	case ap.Status == "assigned":
		return fmt.Sprintf("'%s' has been assigned to you and is ready to start.", ap.PlayTitle)
	default:
		return fmt.Sprintf("You've completed '%s'. Review it to reinforce your knowledge.", ap.PlayTitle)
	}
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

// overlap counts distinct title words present in the query words.
func overlap(query map[string]struct{}, title string) int {
	n := 0
	for w := range wordSet(title) {
		if _, ok := query[w]; ok {
			n++
		}
	}
	return n
}
