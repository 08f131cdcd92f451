package catalog

import (
	"testing"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
)

func strPtr(s string) *string { return &s }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleData() catalog.Data {
	return catalog.Data{
		Companies: []catalog.Company{{ID: "c1", Name: "Acme"}},
		Users: []catalog.User{
			{ID: "u1", Username: "alice", DisplayName: "Alice", Role: "learner", CompanyID: "c1", IsActive: true},
			{ID: "u2", Username: "bob", DisplayName: "Bob", Role: "learner", CompanyID: "c1", IsActive: false},
		},
		Plays: []catalog.Play{
			{ID: "p1", CompanyID: "c1", Title: "Discovery", Description: "d", IsActive: true},
			{ID: "p2", CompanyID: "c1", Title: "Pricing", Description: "d", IsActive: true},
		},
		Reps: []catalog.Rep{
			{ID: "r2", PlayID: "p1", CompanyID: "c1", PromptTitle: "Practice", PromptType: "video", Position: 1},
			{ID: "r1", PlayID: "p1", CompanyID: "c1", PromptTitle: "Watch intro", PromptType: "watch",
				AssetID: strPtr("a1"), Position: 0},
		},
		Assets: []catalog.Asset{{ID: "a1", Type: "pdf", FileName: "intro.pdf", CompanyID: "c1"}},
		Assignments: []catalog.Assignment{
			{ID: "as2", UserID: "u1", PlayID: "p2", AssignedDate: "2025-01-02", Status: "in_progress", Position: 1},
			{ID: "as1", UserID: "u1", PlayID: "p1", AssignedDate: "2025-01-01", Status: "completed",
				CompletedAt: strPtr("2025-02-01"), Position: 0},
		},
		Submissions: []catalog.Submission{
			{ID: "s1", UserID: "u1", RepID: "r2", SubmittedAt: "2025-01-05", SubmissionType: "video",
				AssetID: "a1", CompanyID: "c1"},
		},
		Feedback: []catalog.Feedback{
			{ID: "f1", SubmissionID: "s1", CompanyID: "c1", Score: 7, Text: "good", CreatedAt: "2025-01-06"},
		},
	}
}
