// Package search implements the three retrieval modes over
// store.Store: lexical BM25 (via the sqlite FTS5 virtual table),
// dense cosine (via an in-process HNSW graph), and RRF hybrid fusion
// of the two, sharing a common cache/pagination/filter layer.
package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
)

// LexicalResult is a single BM25 hit, score following the "larger is
// better" convention the control surface exposes externally even
// though sqlite's bm25() function itself returns negative-good values;
// this package negates and exposes the magnitude as its documented,
// stable convention.
type LexicalResult struct {
	Document models.Document
	Score    float64
}

// Lexical runs BM25 retrieval over search_text via FTS5. It queries
// the underlying *sql.DB directly (rather than through store.Store)
// because FTS5 MATCH is a sqlite-specific capability the generic
// Store interface does not expose; Lexical is constructed with a
// concrete *sql.DB handle from the sqlite store package.
type Lexical struct {
	db     *sql.DB
	logger arbor.ILogger
}

func NewLexical(db *sql.DB, logger arbor.ILogger) *Lexical {
	return &Lexical{db: db, logger: logger}
}

const lexicalSelectColumns = `d.id, d.url, d.title, d.description, d.content, d.notes, d.tags, d.hidden,
	d.added_at, d.updated_at, d.crawled_at, d.http_status, d.crawl_error, d.search_text, d.embedding`

// Search returns up to n candidates ordered by descending score
// (sqlite's bm25() yields negative-good values; we negate so larger
// magnitude means a better match). Excludes hidden and
// http_status >= 400 documents. Empty query returns no results, no
// error.
func (l *Lexical) Search(ctx context.Context, query string, n int) ([]LexicalResult, error) {
	normalized := models.NormalizeQuery(query)
	if normalized == "" {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT `+lexicalSelectColumns+`, bm25(documents_fts) AS rank
		FROM documents_fts
		JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE documents_fts MATCH ?
			AND d.hidden = 0 AND (d.http_status IS NULL OR d.http_status < 400)
		ORDER BY rank
		LIMIT ?
	`, ftsQuery(normalized), n)
	if err != nil {
		return nil, models.ErrUnavailable("lexical search failed: "+err.Error(), err)
	}
	defer rows.Close()

	var out []LexicalResult
	for rows.Next() {
		doc, rank, err := scanLexicalRow(rows)
		if err != nil {
			return nil, models.ErrUnavailable("lexical search failed: "+err.Error(), err)
		}
		out = append(out, LexicalResult{Document: doc, Score: -rank})
	}
	return out, rows.Err()
}

// ftsQuery quotes each whitespace-separated term of the normalized
// query as its own FTS5 string, so that punctuation left over after
// search_text normalization cannot be interpreted as FTS5 query syntax,
// and ORs the terms together: a document matching any term is a
// candidate, ranked by bm25.
func ftsQuery(normalized string) string {
	terms := strings.Fields(normalized)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " OR ")
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func scanLexicalRow(rows *sql.Rows) (models.Document, float64, error) {
	var (
		doc                                           models.Document
		title, description, content, notes, tagsRaw sql.NullString
		crawlError                                    sql.NullString
		crawledAt, httpStatus                         sql.NullInt64
		addedAt, updatedAt                            int64
		embeddingRaw                                  []byte
		rank                                           float64
	)
	err := rows.Scan(
		&doc.ID, &doc.URL, &title, &description, &content, &notes, &tagsRaw, &doc.Hidden,
		&addedAt, &updatedAt, &crawledAt, &httpStatus, &crawlError, &doc.SearchText, &embeddingRaw,
		&rank,
	)
	if err != nil {
		return models.Document{}, 0, err
	}
	doc.Title = title.String
	doc.Description = description.String
	doc.Content = content.String
	doc.Notes = notes.String
	doc.AddedAt = unixTime(addedAt)
	doc.UpdatedAt = unixTime(updatedAt)
	if crawledAt.Valid {
		t := unixTime(crawledAt.Int64)
		doc.CrawledAt = &t
	}
	if httpStatus.Valid {
		v := int(httpStatus.Int64)
		doc.HTTPStatus = &v
	}
	if crawlError.Valid {
		v := crawlError.String
		doc.CrawlError = &v
	}
	if tagsRaw.Valid && tagsRaw.String != "" {
		_ = json.Unmarshal([]byte(tagsRaw.String), &doc.Tags)
	}
	if len(embeddingRaw) > 0 {
		doc.Embedding = decodeEmbeddingCopy(embeddingRaw)
	}
	return doc, rank, nil
}
