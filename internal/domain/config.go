package domain

// KeyPrefix namespaces every key the service writes to the key-value store.
const KeyPrefix = "playsearch:"

// VectorConfig holds the embedding settings the chunk index was built with.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultVectorConfig returns the configuration used by the ingestion job.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-large",
		Dimensions:     3072,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}
