package knowledge

import "time"

// Document is a chunk of documentation text stored in the knowledge base.
type Document struct {
	ID       string            // Unique identifier (derived from source path + chunk index)
	Content  string            // Chunk text
	Metadata map[string]string // Source path, chunk index, etc.
	CreateAt time.Time         // Ingestion timestamp
}

// Result is a single similarity-search hit.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity, 1.0 = identical direction
}

// SearchOption configures Search using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK int32
}

// WithTopK sets the maximum number of results. Default is 4.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = int32(k)
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 4}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
