package filter

import "testing"

func TestHasCompanyFence(t *testing.T) {
	tests := []struct {
		name      string
		node      Node
		companyID string
		want      bool
	}{
		{
			name:      "fence first",
			node:      NewAnd(CompanyFence("c1"), Eq{Field: FieldContentType, Value: ContentKnowledge}),
			companyID: "c1",
			want:      true,
		},
		{
			name:      "other company",
			node:      NewAnd(CompanyFence("c1")),
			companyID: "c2",
			want:      false,
		},
		{
			name:      "fence not first",
			node:      NewAnd(Eq{Field: FieldContentType, Value: ContentKnowledge}, CompanyFence("c1")),
			companyID: "c1",
			want:      false,
		},
		{
			name:      "or root",
			node:      NewOr(CompanyFence("c1")),
			companyID: "c1",
			want:      false,
		},
		{
			name:      "bare eq",
			node:      CompanyFence("c1"),
			companyID: "c1",
			want:      false,
		},
		{
			name:      "empty and",
			node:      NewAnd(),
			companyID: "c1",
			want:      false,
		},
		{
			name:      "empty company id",
			node:      NewAnd(CompanyFence("")),
			companyID: "",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCompanyFence(tt.node, tt.companyID); got != tt.want {
				t.Errorf("HasCompanyFence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	n := NewAnd(
		CompanyFence("acme"),
		NewOr(
			NewAnd(Eq{Field: FieldContentType, Value: ContentKnowledge}, In{Field: FieldPlayID, Values: []string{"p1", "p2"}}),
			NewAnd(Eq{Field: FieldContentType, Value: ContentSubmission}, Eq{Field: FieldUserID, Value: "u1"}),
		),
	)

	want := `(company_id = "acme" AND ((content_type = "knowledge" AND play_id IN ["p1", "p2"]) OR ` +
		`(content_type = "submission" AND user_id = "u1")))`
	if got := String(n); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestHasEmptyIn(t *testing.T) {
	knowledge := func(ids ...string) Node {
		return NewAnd(Eq{Field: FieldContentType, Value: ContentKnowledge}, In{Field: FieldPlayID, Values: ids})
	}
	own := NewAnd(Eq{Field: FieldContentType, Value: ContentSubmission}, Eq{Field: FieldUserID, Value: "u1"})

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"eq only", CompanyFence("acme"), false},
		{"populated in", In{Field: FieldPlayID, Values: []string{"p1"}}, false},
		{"bare empty in", In{Field: FieldPlayID}, true},
		{"blank value", In{Field: FieldPlayID, Values: []string{"p1", ""}}, true},
		{"nested in and", NewAnd(CompanyFence("acme"), knowledge()), true},
		{"nested in or", NewAnd(CompanyFence("acme"), NewOr(knowledge(), own)), true},
		{"scoped combined", NewAnd(CompanyFence("acme"), NewOr(knowledge("p1", "p2"), own)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasEmptyIn(tt.node); got != tt.want {
				t.Errorf("HasEmptyIn(%s) = %v, want %v", String(tt.node), got, tt.want)
			}
		})
	}
}
