package domain

// VectorConfig describes the embedding model the catalog vectors were produced with.
type VectorConfig struct {
	Model          string
	Dimensions     int
	MaxSequenceLen int
}

// DefaultVectorConfig returns the configuration for bge-small-en-v1.5, the model the catalog is embedded with.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "BAAI/bge-small-en-v1.5",
		Dimensions:     384,
		MaxSequenceLen: 512,
	}
}
