package search

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/coder/hnsw"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

func decodeEmbeddingCopy(raw []byte) []float32 {
	n := len(raw) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}

// DenseResult is a single cosine hit.
type DenseResult struct {
	Document models.Document
	Distance float64 // 1 - cosine similarity
}

// Embedder is the narrow capability Dense needs to turn a query string
// into a vector; it mirrors embedder.Embedder without importing that
// package, avoiding an import cycle (embedder never needs search).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Dense runs cosine retrieval against an in-process HNSW graph built
// from store.Store's embedding column: an approximate nearest-neighbor
// index instead of a brute-force scan over every document on every
// query.
type Dense struct {
	st       store.Store
	embedder Embedder
	logger   arbor.ILogger

	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	byID  map[string]models.Document
}

func NewDense(st store.Store, embedder Embedder, logger arbor.ILogger) *Dense {
	return &Dense{st: st, embedder: embedder, logger: logger}
}

// Rebuild reloads the HNSW graph from every embedded, searchable
// document. Called after `db vector init`, after an embed job
// completes, and lazily on first use.
func (d *Dense) Rebuild(ctx context.Context) error {
	docs, err := d.st.SearchableDocuments(ctx)
	if err != nil {
		return err
	}

	graph := hnsw.NewGraph[string]()
	graph.Distance = hnsw.CosineDistance
	byID := make(map[string]models.Document, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		byID[doc.ID] = doc
		graph.Add(hnsw.MakeNode(doc.ID, doc.Embedding))
	}

	d.mu.Lock()
	d.graph = graph
	d.byID = byID
	d.mu.Unlock()
	return nil
}

// Search embeds the query, then returns candidates within
// maxDistance, ordered by ascending distance. Fails with
// VectorNotInitialized if the embedding column/index was never
// created.
func (d *Dense) Search(ctx context.Context, query string, n int, maxDistance float64) ([]DenseResult, error) {
	normalized := models.NormalizeQuery(query)
	if normalized == "" {
		return nil, nil
	}

	initialized, err := d.st.VectorInitialized(ctx)
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, models.ErrVectorNotInitialized("vector search not initialized")
	}

	d.mu.RLock()
	graph, byID := d.graph, d.byID
	d.mu.RUnlock()
	if graph == nil {
		if err := d.Rebuild(ctx); err != nil {
			return nil, err
		}
		d.mu.RLock()
		graph, byID = d.graph, d.byID
		d.mu.RUnlock()
	}
	if len(byID) == 0 {
		return nil, nil
	}

	queryVec, err := d.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, models.ErrEmbed("failed to embed query: "+err.Error(), err)
	}

	neighbors := graph.Search(queryVec, n)

	out := make([]DenseResult, 0, len(neighbors))
	for _, nb := range neighbors {
		doc, ok := byID[nb.Key]
		if !ok {
			continue
		}
		distance := 1 - cosineSimilarity(queryVec, doc.Embedding)
		if distance > maxDistance {
			continue
		}
		out = append(out, DenseResult{Document: doc, Distance: distance})
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
