package control

import (
	"context"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/search"
)

// SearchParams is the shared parameter shape for all three search
// commands; Surface clamps page/perPage itself so callers never pass
// raw offsets.
type SearchParams struct {
	Query     string
	Page      int
	PerPage   int
	KeywordWt float64
	VectorWt  float64
	MinScore  float64
	UseCache  bool
}

// SearchResult is Search's response envelope.
type SearchResult struct {
	Results    []search.Result
	Pagination Pagination
}

// defaultKeywordWeight and defaultVectorWeight are the hybrid fusion
// defaults used when a caller leaves both weights unset; defaultMinScore
// is the default fused-score floor.
const (
	defaultKeywordWeight = 0.5
	defaultVectorWeight  = 0.5
	defaultMinScore      = 0.005
)

func (p SearchParams) weights() (kw, vw, minScore float64) {
	kw, vw, minScore = p.KeywordWt, p.VectorWt, p.MinScore
	if kw == 0 && vw == 0 {
		kw, vw = defaultKeywordWeight, defaultVectorWeight
	}
	if minScore == 0 {
		minScore = defaultMinScore
	}
	return kw, vw, minScore
}

// validateWeight rejects a keyword/vector weight outside [0,1]. The
// unset sentinel (0) always passes here; weights() applies the 0.5/0.5
// default afterward, so validation only needs to catch genuinely
// out-of-range input.
func validateWeight(name string, w float64) error {
	if w < 0 || w > 1 {
		return models.ErrInvalidf("%s must be between 0 and 1, got %v", name, w)
	}
	return nil
}

// Search runs hybrid (RRF-fused keyword + vector) search.
func (s *Surface) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	if err := validateWeight("keyword_weight", p.KeywordWt); err != nil {
		return SearchResult{}, err
	}
	if err := validateWeight("vector_weight", p.VectorWt); err != nil {
		return SearchResult{}, err
	}

	page, perPage := clampPaging(p.Page, p.PerPage)
	kw, vw, minScore := p.weights()

	results, total, err := s.Hybrid.Search(ctx, search.Params{
		Query:       p.Query,
		KeywordWt:   kw,
		VectorWt:    vw,
		MinScore:    minScore,
		MaxDistance: search.DefaultMaxDistance,
		Limit:       perPage,
		Offset:      (page - 1) * perPage,
		UseCache:    p.UseCache,
	})
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{
		Results:    results,
		Pagination: buildPagination(page, perPage, total),
	}, nil
}

// TextSearchResult is TextSearch's response envelope.
type TextSearchResult struct {
	Results    []search.LexicalResult
	Pagination Pagination
}

// TextSearch runs BM25-only keyword search, without consulting the
// hybrid cache (lexical results are cheap enough not to need one).
func (s *Surface) TextSearch(ctx context.Context, query string, page, perPage int) (TextSearchResult, error) {
	page, perPage = clampPaging(page, perPage)
	all, err := s.Lexical.Search(ctx, query, page*perPage)
	if err != nil {
		return TextSearchResult{}, err
	}
	start := (page - 1) * perPage
	if start >= len(all) {
		return TextSearchResult{Pagination: buildPagination(page, perPage, len(all))}, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return TextSearchResult{
		Results:    all[start:end],
		Pagination: buildPagination(page, perPage, len(all)),
	}, nil
}

// VectorSearchResult is VectorSearch's response envelope.
type VectorSearchResult struct {
	Results    []search.DenseResult
	Pagination Pagination
}

// VectorSearch runs cosine nearest-neighbor search over the dense
// index, failing with models.KindVectorNotInitialized if the vector
// column/index was never created.
func (s *Surface) VectorSearch(ctx context.Context, query string, page, perPage int, maxDistance float64) (VectorSearchResult, error) {
	page, perPage = clampPaging(page, perPage)
	all, err := s.Dense.Search(ctx, query, page*perPage, maxDistance)
	if err != nil {
		return VectorSearchResult{}, err
	}
	start := (page - 1) * perPage
	if start >= len(all) {
		return VectorSearchResult{Pagination: buildPagination(page, perPage, len(all))}, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return VectorSearchResult{
		Results:    all[start:end],
		Pagination: buildPagination(page, perPage, len(all)),
	}, nil
}

// DBStatus is the db status command's response, combining store-level
// and vector-index counters into one surface.
type DBStatus struct {
	TotalDocuments    int
	CrawledCount      int
	VectorInitialized bool
	PendingEmbeddings int
}

// Status reports store-level counters; pending_embeddings is 0 when
// the vector column was never created, rather than erroring.
func (s *Surface) Status(ctx context.Context) (DBStatus, error) {
	vectorInit, err := s.Store.VectorInitialized(ctx)
	if err != nil {
		return DBStatus{}, err
	}

	listResult, err := s.Store.List(ctx, 1, 0)
	if err != nil {
		return DBStatus{}, err
	}

	crawled := 0
	docs, err := s.Store.SearchableDocuments(ctx)
	if err != nil {
		return DBStatus{}, err
	}
	for _, d := range docs {
		if d.CrawledAt != nil {
			crawled++
		}
	}

	return DBStatus{
		TotalDocuments:    listResult.TotalCount,
		CrawledCount:      crawled,
		VectorInitialized: vectorInit,
		PendingEmbeddings: listResult.PendingEmbeddings,
	}, nil
}

// VectorInit creates the embedding column/index, then rebuilds the
// in-process dense graph so it is immediately usable.
func (s *Surface) VectorInit(ctx context.Context) error {
	if err := s.Store.InitVector(ctx); err != nil {
		return err
	}
	return s.Dense.Rebuild(ctx)
}

// VectorStatus reports whether the vector column/index exists.
func (s *Surface) VectorStatus(ctx context.Context) (bool, error) {
	return s.Store.VectorInitialized(ctx)
}
