package intent

// Intent is the category a query is routed by.
type Intent string

// Intent values produced by the classifier.
const (
	AssignedKnowledge   Intent = "assigned_knowledge"
	PerformanceHistory  Intent = "performance_history"
	Combined            Intent = "combined"
	GeneralProfessional Intent = "general_professional"
	OutOfScope          Intent = "out_of_scope"
)

// FallbackReasoning is reported when the classifier output could not be used.
const FallbackReasoning = "classification failed, defaulting"

// IsValid checks if the intent is one of the supported values.
func (i Intent) IsValid() bool {
	switch i {
	case AssignedKnowledge, PerformanceHistory, Combined, GeneralProfessional, OutOfScope:
		return true
	}
	return false
}

// Result is the classifier verdict for a single query.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Fallback is the result used when classification output is unusable.
func Fallback() Result {
	return Result{
		Intent:     AssignedKnowledge,
		Confidence: 0.5,
		Reasoning:  FallbackReasoning,
	}
}
