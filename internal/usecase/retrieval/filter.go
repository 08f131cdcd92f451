package retrieval

import (
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
)

// BuildFilter returns the retrieval filter for the intent. The root is always
// And with the company fence as its first conjunct.
//
// performance_history searches only the user's own submissions, combined
// searches assigned knowledge or own submissions, and every other intent
// searches assigned knowledge only.
func BuildFilter(u *user.Context, in intent.Intent) filter.And {
	fence := filter.CompanyFence(u.CompanyID)

	switch in {
	case intent.PerformanceHistory:
		return filter.NewAnd(append([]filter.Node{fence}, submissionScope(u)...)...)
	case intent.Combined:
		return filter.NewAnd(fence, filter.NewOr(
			filter.NewAnd(knowledgeScope(u)...),
			filter.NewAnd(submissionScope(u)...),
		))
	default:
		return filter.NewAnd(append([]filter.Node{fence}, knowledgeScope(u)...)...)
	}
}

func knowledgeScope(u *user.Context) []filter.Node {
	return []filter.Node{
		filter.Eq{Field: filter.FieldContentType, Value: filter.ContentKnowledge},
		filter.In{Field: filter.FieldPlayID, Values: u.AssignedPlayIDs()},
	}
}

func submissionScope(u *user.Context) []filter.Node {
	return []filter.Node{
		filter.Eq{Field: filter.FieldContentType, Value: filter.ContentSubmission},
		filter.Eq{Field: filter.FieldUserID, Value: u.UserID},
	}
}
