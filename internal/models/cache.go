package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SearchCacheKey uniquely identifies a memoized hybrid first page:
// (hash(normalized_query), keyword_weight, vector_weight), weights
// participating as fixed-precision (2-decimal) numbers.
type SearchCacheKey struct {
	QueryHash   string
	KeywordWt   string // formatted to 2 decimals, e.g. "0.50"
	VectorWt    string
}

// NormalizeQuery lowercases and outer-trims a query string before it
// is hashed into a cache key; this is also the normalization applied
// before lexical/dense retrieval itself.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// NewSearchCacheKey builds a cache key from a raw query and weights.
func NewSearchCacheKey(query string, kwWeight, vwWeight float64) SearchCacheKey {
	normalized := NormalizeQuery(query)
	sum := sha256.Sum256([]byte(normalized))
	return SearchCacheKey{
		QueryHash: hex.EncodeToString(sum[:]),
		KeywordWt: fmt.Sprintf("%.2f", kwWeight),
		VectorWt:  fmt.Sprintf("%.2f", vwWeight),
	}
}

// SearchCacheEntry holds a materialized first page of hybrid results
// for a given key, with a TTL-based expiry.
type SearchCacheEntry struct {
	Key         SearchCacheKey
	Results     []HybridResult
	TotalCount  int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the entry's TTL has passed at time `now`.
func (e *SearchCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// HybridResult is a single fused search hit, carrying both source
// ranks so callers can see exactly how RRF assembled the score.
type HybridResult struct {
	Document    Document
	Score       float64 // fused RRF score
	KeywordRank int     // 1-indexed; RankAbsent sentinel if not present
	VectorRank  int     // 1-indexed; RankAbsent sentinel if not present
}

// RankAbsent is the sentinel rank used when a document did not appear
// in one of the two source lists.
const RankAbsent = 999
