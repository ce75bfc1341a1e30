// Package store defines the persistence contract for Document records
// and its sqlite implementation. Every operation here is the single
// source of truth for URL uniqueness, the search_text projection, and
// embedding staleness.
package store

import (
	"context"

	"github.com/tarslinks/linkhive/internal/models"
)

// ListResult is the payload of List: the page of documents plus
// counts that are unaffected by limit/offset.
type ListResult struct {
	Documents         []models.Document
	TotalCount        int
	PendingEmbeddings int
}

// CrawlUpdateInput carries the fields a crawl produced; nil title or
// description means "leave unchanged"; Content (possibly an empty
// string) is written only when HasContent is true, otherwise the stored
// content is kept.
type CrawlUpdateInput struct {
	Title       *string
	Description *string
	Content     string
	HasContent  bool // false means "no content was supplied", coalesce
	HTTPStatus  *int
	CrawlError  *string
}

// Store is the persistence contract document operations rely on. All
// methods fail with models.ErrUnavailable if the backing store is
// unreachable; Store never retries transient errors itself.
type Store interface {
	Insert(ctx context.Context, url string) (id string, err error)
	GetByID(ctx context.Context, id string) (models.Document, error)
	GetByURL(ctx context.Context, url string) (models.Document, error)
	List(ctx context.Context, limit, offset int) (ListResult, error)

	RemoveByURL(ctx context.Context, url string) (removed bool, err error)
	RemoveByID(ctx context.Context, id string) (removed bool, err error)
	RemoveByGlob(ctx context.Context, pattern string) (removedURLs []string, err error)

	UpdateTimestamp(ctx context.Context, url string) (updated bool, err error)
	ToggleHidden(ctx context.Context, idOrURL string) (newHidden bool, err error)

	CrawlUpdate(ctx context.Context, url string, in CrawlUpdateInput) (updated, contentChanged bool, err error)

	ListToCrawl(ctx context.Context, selector models.ListSelector) ([]string, error)

	// VectorInitialized reports whether the embedding column/index
	// exists; dense/hybrid search fail with VectorNotInitialized when
	// it does not.
	VectorInitialized(ctx context.Context) (bool, error)
	InitVector(ctx context.Context) error

	// SetEmbedding persists a freshly computed embedding for a
	// document, keyed by id, only when the document's current
	// search_text still matches searchTextSnapshot (otherwise the
	// content has moved on and the embedding would be stale on write).
	SetEmbedding(ctx context.Context, id string, searchTextSnapshot string, embedding []float32) (applied bool, err error)

	// AllEmbedded returns (id, embedding) for every document with a
	// non-null embedding, passing the standard hidden/http_status
	// filter.
	AllEmbedded(ctx context.Context) ([]EmbeddedDoc, error)

	// Documents passing the standard filter (not hidden, http_status <
	// 400, or never fetched); the dense index is rebuilt from these, and
	// the embed job and status report enumerate them.
	SearchableDocuments(ctx context.Context) ([]models.Document, error)

	Cache() CacheStore

	Close() error
}

// EmbeddedDoc is a lightweight (id, embedding) projection that avoids
// loading full Document bodies.
type EmbeddedDoc struct {
	ID        string
	Embedding []float32
}

// CacheStore is the persistence contract for SearchCacheEntry (§4.5).
type CacheStore interface {
	Get(ctx context.Context, key models.SearchCacheKey) (*models.SearchCacheEntry, error)
	Put(ctx context.Context, entry models.SearchCacheEntry) error
	InvalidateAll(ctx context.Context) (count int, err error)
	PurgeExpired(ctx context.Context) (count int, err error)
}
