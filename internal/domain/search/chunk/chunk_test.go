package chunk

import (
	"slices"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestPlayIDs(t *testing.T) {
	tests := []struct {
		name   string
		chunks []SourceChunk
		want   []string
	}{
		{"nil input", nil, []string{}},
		{"all nil play ids", []SourceChunk{{AssetID: "a"}, {AssetID: "b"}}, []string{}},
		{
			"duplicates collapse",
			[]SourceChunk{{PlayID: strPtr("p1")}, {PlayID: strPtr("p2")}, {PlayID: strPtr("p1")}},
			[]string{"p1", "p2"},
		},
		{
			"nil dropped",
			[]SourceChunk{{PlayID: nil}, {PlayID: strPtr("p3")}},
			[]string{"p3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlayIDs(tt.chunks)
			if !slices.Equal(got, tt.want) {
				t.Errorf("PlayIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}
