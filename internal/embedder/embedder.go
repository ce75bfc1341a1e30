// Package embedder maps text to a fixed-dimension dense vector. Two
// implementations are provided: Hosted, which calls out to a managed
// embedding HTTP API, and Static, a dependency-free deterministic
// fallback used by tests and by the "no embedder configured" path.
package embedder

import "context"

// Embedder maps text to a models.EmbeddingDimension-length vector.
// Implementations truncate to models.EmbedMaxInputChars before
// embedding and fail with models.ErrEmbed on any provider error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
