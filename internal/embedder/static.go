package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/tarslinks/linkhive/internal/models"
)

// Static is a hash-based, dependency-free Embedder: no network call,
// no model weights, fully deterministic. It is the Embedder wired in
// when no hosted provider is configured, and the one used by tests;
// any embedder producing D-dimensional cosine-comparable vectors is
// admissible here.
//
// Grounded on the hashed-token/n-gram approach of a sibling pack
// repo's static embedder, simplified for prose search_text rather
// than source code (no camelCase/snake_case splitting).
type Static struct{}

func NewStatic() Static { return Static{} }

const (
	staticTokenWeight = 0.7
	staticNgramWeight = 0.3
	staticNgramSize   = 3
)

var staticTokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

func (Static) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, models.EmbeddingDimension), nil
	}
	if runes := []rune(trimmed); len(runes) > models.EmbedMaxInputChars {
		trimmed = string(runes[:models.EmbedMaxInputChars])
	}

	vector := make([]float32, models.EmbeddingDimension)
	lower := strings.ToLower(trimmed)

	for _, token := range staticTokenRegex.FindAllString(lower, -1) {
		vector[hashToIndex(token, models.EmbeddingDimension)] += staticTokenWeight
	}
	for _, ngram := range extractNgrams(stripNonAlnum(lower), staticNgramSize) {
		vector[hashToIndex(ngram, models.EmbeddingDimension)] += staticNgramWeight
	}

	return normalize(vector), nil
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(s string, n int) []string {
	if len(s) < n {
		return nil
	}
	out := make([]string, 0, len(s)-n+1)
	for i := 0; i <= len(s)-n; i++ {
		out = append(out, s[i:i+n])
	}
	return out
}

func hashToIndex(s string, size int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / magnitude)
	}
	return out
}
