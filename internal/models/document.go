// Package models defines the core data model for linkhive's link
// store: one Document per URL, a derived search_text projection, and
// the SearchCacheEntry/Progress types that sit alongside it.
package models

import (
	"strings"
	"time"
)

// EmbeddingDimension is the fixed dense-vector size. It is part of the
// external contract: changing it invalidates any on-disk embedding
// column or vector index.
const EmbeddingDimension = 1536

// EmbedMaxInputChars truncates search_text before it reaches the
// Embedder.
const EmbedMaxInputChars = 30000

// searchTextReplacer collapses the separator characters and the "//"
// digraph into single spaces, per the search_text invariant. The
// digraph is listed before its constituent characters so it is
// replaced as a pair rather than as two independent slashes.
var searchTextReplacer = strings.NewReplacer(
	"//", " ",
	".", " ",
	"/", " ",
	"-", " ",
	"_", " ",
	":", " ",
)

// Document is the central entity: one record per URL, carrying
// user-editable fields, crawl results, and derived search state.
type Document struct {
	ID          string
	URL         string
	Title       string
	Description string
	Content     string
	Notes       string
	Tags        []string
	Hidden      bool

	AddedAt   time.Time
	UpdatedAt time.Time
	CrawledAt *time.Time

	HTTPStatus *int
	CrawlError *string

	// SearchText is the derived projection; callers never set it
	// directly. The store recomputes it from the five source fields
	// whenever any of them changes.
	SearchText string

	// Embedding is nil when pending: never generated, or invalidated
	// by a content change.
	Embedding []float32
}

// ComputeSearchText implements the search_text invariant: the
// concatenation of url, title, description, content, notes, with the
// separator characters ". / - _ :" and the digraph "//" each replaced
// by a single space. Null fields contribute empty strings.
func ComputeSearchText(url, title, description, content, notes string) string {
	raw := strings.Join([]string{url, title, description, content, notes}, " ")
	return searchTextReplacer.Replace(raw)
}

// CrawlOutcome is what a Crawler returns to its caller; it is bound to
// a Document only via Store.CrawlUpdate, the crawler never writes to
// the store itself.
type CrawlOutcome struct {
	Title       string
	Description string
	Content     string
	HTTPStatus  *int
	Error       *string
}

// ListSelector chooses which documents list_to_crawl returns.
type ListSelector struct {
	Mode string // one of the Selector* constants below
	Days int    // only meaningful for SelectorOld
	URL  string // only meaningful for SelectorURL
}

const (
	SelectorMissing = "missing"
	SelectorAll     = "all"
	SelectorOld     = "old"
	SelectorURL     = "url"
)
