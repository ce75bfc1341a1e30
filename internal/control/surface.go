// Package control implements a thin, business-rule-free layer over
// Store/Search/JobRunner that the CLI, HTTP server, and MCP adapter
// each bind to identically. It owns pagination clamping and
// error-to-status mapping; it owns no domain logic of its own.
package control

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/crawler"
	"github.com/tarslinks/linkhive/internal/embedder"
	"github.com/tarslinks/linkhive/internal/jobs"
	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/search"
	"github.com/tarslinks/linkhive/internal/store"
)

// Surface wires together every component a CLI/HTTP/MCP binding needs.
// It holds no state of its own beyond what its dependencies already
// own.
type Surface struct {
	Store    store.Store
	Lexical  *search.Lexical
	Dense    *search.Dense
	Hybrid   *search.Hybrid
	Jobs     *jobs.Runner
	Crawler  crawler.Crawler
	Embedder embedder.Embedder
	Logger   arbor.ILogger
}

func New(st store.Store, lexical *search.Lexical, dense *search.Dense, hybrid *search.Hybrid, runner *jobs.Runner, crawl crawler.Crawler, embed embedder.Embedder, logger arbor.ILogger) *Surface {
	return &Surface{
		Store:    st,
		Lexical:  lexical,
		Dense:    dense,
		Hybrid:   hybrid,
		Jobs:     runner,
		Crawler:  crawl,
		Embedder: embed,
		Logger:   logger,
	}
}

// Pagination is the envelope shape returned by every paginated
// operation: per_page clamped to [1,100], page clamped to >=1,
// total_pages is a ceiling division.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
	PrevPage   int  `json:"prev_page,omitempty"`
	NextPage   int  `json:"next_page,omitempty"`
}

// clampPaging normalizes page/perPage per the pagination invariant.
func clampPaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func buildPagination(page, perPage, totalCount int) Pagination {
	page, perPage = clampPaging(page, perPage)
	totalPages := (totalCount + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	p := Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if p.HasPrev {
		p.PrevPage = page - 1
	}
	if p.HasNext {
		p.NextPage = page + 1
	}
	return p
}

// AddResult is the outcome of Add.
type AddResult struct {
	Document models.Document
}

// Add inserts url, prepending "https://" when the input carries no
// scheme, matching the CLI/HTTP convenience the ControlSurface offers
// over the raw Store.Insert contract.
func (s *Surface) Add(ctx context.Context, url string) (AddResult, error) {
	url = prependScheme(url)
	id, err := s.Store.Insert(ctx, url)
	if err != nil {
		return AddResult{}, err
	}
	doc, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Document: doc}, nil
}

// ListResult is List's response envelope.
type ListResult struct {
	Documents  []models.Document
	Pagination Pagination
}

// List returns a page of documents.
func (s *Surface) List(ctx context.Context, page, perPage int) (ListResult, error) {
	page, perPage = clampPaging(page, perPage)
	res, err := s.Store.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Documents:  res.Documents,
		Pagination: buildPagination(page, perPage, res.TotalCount),
	}, nil
}

// Remove removes a document by URL, or by id when no document has that
// URL.
func (s *Surface) Remove(ctx context.Context, idOrURL string) (bool, error) {
	removed, err := s.Store.RemoveByURL(ctx, idOrURL)
	if err != nil || removed {
		return removed, err
	}
	return s.Store.RemoveByID(ctx, idOrURL)
}

// RemoveByGlob removes every document matching a glob pattern.
func (s *Surface) RemoveByGlob(ctx context.Context, pattern string) ([]string, error) {
	return s.Store.RemoveByGlob(ctx, pattern)
}

// UpdateTimestamp bumps a document's updated_at to now.
func (s *Surface) UpdateTimestamp(ctx context.Context, url string) (bool, error) {
	return s.Store.UpdateTimestamp(ctx, url)
}

// CleanDuplicatesResult reports how many legacy duplicate rows were
// found, which under the SQLite schema's UNIQUE(url) constraint is
// always zero.
type CleanDuplicatesResult struct {
	Removed int
}

// CleanDuplicates is kept in the command surface for interface parity
// with a flat-file predecessor, where duplicate entries were possible.
// A UNIQUE(url) constraint already prevents duplicate URLs from ever
// existing under the SQLite schema, so this is a no-op by design.
func (s *Surface) CleanDuplicates(ctx context.Context) (CleanDuplicatesResult, error) {
	s.Logger.Debug().Msg("clean_duplicates is a no-op under the SQLite schema's UNIQUE(url) constraint")
	return CleanDuplicatesResult{Removed: 0}, nil
}

func prependScheme(raw string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(raw) >= len(prefix) && raw[:len(prefix)] == prefix {
			return raw
		}
	}
	return "https://" + raw
}
