package mode

import (
	"fmt"

	"github.com/kailas-cloud/playsearch/internal/domain/intent"
)

// Mode is the caller's routing preference for a search.
type Mode string

// Search mode constants.
const (
	// Auto keeps the classifier's verdict. An empty mode behaves the same.
	Auto        Mode = "auto"
	Knowledge   Mode = "knowledge"
	Performance Mode = "performance"
)

// IsValid checks if the mode is one of the supported values. Empty is valid.
func (m Mode) IsValid() bool {
	return m == "" || m == Auto || m == Knowledge || m == Performance
}

// Parse converts raw input to a Mode.
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown search mode %q", s)
	}
	return m, nil
}

// Apply overrides the classified intent according to the mode.
func Apply(i intent.Intent, m Mode) intent.Intent {
	switch m {
	case Knowledge:
		return intent.AssignedKnowledge
	case Performance:
		return intent.PerformanceHistory
	default:
		return i
	}
}
