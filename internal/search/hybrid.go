package search

import (
	"context"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

// Hybrid candidate list size pulled from each of Lexical and Dense
// before fusion.
const candidatesPerList = 20

// rrfK is the RRF smoothing constant.
const rrfK = 60

// DefaultMaxDistance is the cosine-distance cutoff used by the dense
// arm of hybrid search when a caller leaves Params.MaxDistance unset.
// The Go zero value would keep only near-identical embeddings
// (distance <= 0), which silently drops the dense candidate list
// entirely.
const DefaultMaxDistance = 0.8

// Hybrid fuses Lexical and Dense results with Reciprocal Rank Fusion
// and serves/populates the search cache.
type Hybrid struct {
	lexical *Lexical
	dense   *Dense
	cache   store.CacheStore
	logger  arbor.ILogger
}

func NewHybrid(lexical *Lexical, dense *Dense, cache store.CacheStore, logger arbor.ILogger) *Hybrid {
	return &Hybrid{lexical: lexical, dense: dense, cache: cache, logger: logger}
}

// Params bundles a hybrid search request's tunables.
type Params struct {
	Query       string
	KeywordWt   float64
	VectorWt    float64
	MinScore    float64
	MaxDistance float64
	Limit       int
	Offset      int
	UseCache    bool
	CacheTTL    time.Duration
}

// Result is a single fused hit with both source ranks attached, using
// models.RankAbsent when a document did not appear in that list.
type Result struct {
	Document    models.Document
	Score       float64
	KeywordRank int
	VectorRank  int
}

// Search returns the page of fused results starting at p.Offset and
// the total number of candidates surviving the min-score cutoff. It
// returns VectorNotInitialized if the embedding column has not been
// set up, the same as a standalone vector search.
//
// On p.Offset == 0 && p.UseCache, the full unpaginated fused result
// set is looked up first and, on a miss, written back after fusion.
// Non-zero offsets always bypass the cache and re-run fusion, since
// only the first page is cached.
func (h *Hybrid) Search(ctx context.Context, p Params) ([]Result, int, error) {
	normalized := models.NormalizeQuery(p.Query)
	if normalized == "" {
		return nil, 0, nil
	}

	var cacheKey models.SearchCacheKey
	useCache := p.UseCache && p.Offset == 0
	if useCache {
		cacheKey = models.NewSearchCacheKey(normalized, p.KeywordWt, p.VectorWt)
		if entry, err := h.cache.Get(ctx, cacheKey); err == nil && entry != nil {
			return fromCachedResults(entry.Results, p.Limit), entry.TotalCount, nil
		}
	}

	fused, err := h.fuse(ctx, normalized, p)
	if err != nil {
		return nil, 0, err
	}

	if useCache {
		now := time.Now().UTC()
		ttl := p.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		entry := models.SearchCacheEntry{
			Key:        cacheKey,
			Results:    toHybridResults(fused),
			TotalCount: len(fused),
			CreatedAt:  now,
			ExpiresAt:  now.Add(ttl),
		}
		if err := h.cache.Put(ctx, entry); err != nil {
			h.logger.Warn().Msgf("hybrid: cache put failed: %v", err)
		}
	}

	return paginate(fused, p.Offset, p.Limit), len(fused), nil
}

// fuse retrieves candidatesPerList from each source and combines them
// via RRF, dropping anything below p.MinScore and ordering the rest by
// descending score. It fails with VectorNotInitialized when the
// embedding column has not been initialized; hybrid never silently
// degrades to keyword-only.
func (h *Hybrid) fuse(ctx context.Context, normalized string, p Params) ([]Result, error) {
	lexResults, err := h.lexical.Search(ctx, normalized, candidatesPerList)
	if err != nil {
		return nil, err
	}

	denResults, err := h.dense.Search(ctx, normalized, candidatesPerList, p.MaxDistance)
	if err != nil {
		return nil, err
	}

	type entry struct {
		doc         models.Document
		keywordRank int
		vectorRank  int
	}
	byID := make(map[string]*entry)
	order := make([]string, 0, len(lexResults)+len(denResults))

	for i, r := range lexResults {
		e, ok := byID[r.Document.ID]
		if !ok {
			e = &entry{doc: r.Document, keywordRank: models.RankAbsent, vectorRank: models.RankAbsent}
			byID[r.Document.ID] = e
			order = append(order, r.Document.ID)
		}
		e.keywordRank = i + 1
	}
	for i, r := range denResults {
		e, ok := byID[r.Document.ID]
		if !ok {
			e = &entry{doc: r.Document, keywordRank: models.RankAbsent, vectorRank: models.RankAbsent}
			byID[r.Document.ID] = e
			order = append(order, r.Document.ID)
		}
		e.vectorRank = i + 1
	}

	out := make([]Result, 0, len(order))
	for _, id := range order {
		e := byID[id]
		var kwScore, vwScore float64
		if e.keywordRank != models.RankAbsent {
			kwScore = 1.0 / float64(rrfK+e.keywordRank)
		}
		if e.vectorRank != models.RankAbsent {
			vwScore = 1.0 / float64(rrfK+e.vectorRank)
		}
		score := p.KeywordWt*kwScore + p.VectorWt*vwScore
		if score < p.MinScore {
			continue
		}
		out = append(out, Result{
			Document:    e.doc,
			Score:       score,
			KeywordRank: e.keywordRank,
			VectorRank:  e.vectorRank,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func paginate(results []Result, offset, limit int) []Result {
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func toHybridResults(fused []Result) []models.HybridResult {
	out := make([]models.HybridResult, len(fused))
	for i, r := range fused {
		out[i] = models.HybridResult{
			Document:    r.Document,
			Score:       r.Score,
			KeywordRank: r.KeywordRank,
			VectorRank:  r.VectorRank,
		}
	}
	return out
}

func fromCachedResults(cached []models.HybridResult, limit int) []Result {
	if limit <= 0 || limit > len(cached) {
		limit = len(cached)
	}
	out := make([]Result, limit)
	for i := 0; i < limit; i++ {
		out[i] = Result{
			Document:    cached[i].Document,
			Score:       cached[i].Score,
			KeywordRank: cached[i].KeywordRank,
			VectorRank:  cached[i].VectorRank,
		}
	}
	return out
}
