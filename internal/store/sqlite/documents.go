package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/tarslinks/linkhive/internal/common"
	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

func (d *DB) Insert(ctx context.Context, url string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := common.NewDocumentID()
	now := time.Now().UTC()
	searchText := models.ComputeSearchText(url, "", "", "", "")

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO documents (id, url, tags, hidden, added_at, updated_at, search_text)
		VALUES (?, ?, '[]', 0, ?, ?, ?)
	`, id, url, now.Unix(), now.Unix(), searchText)
	if err != nil {
		if isUniqueViolation(err) {
			return "", models.ErrAlreadyExists("url already exists: " + url)
		}
		return "", wrapDBErr("insert", err)
	}
	if err := d.cache.invalidateAllLocked(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

const selectColumns = `id, url, title, description, content, notes, tags, hidden,
	added_at, updated_at, crawled_at, http_status, crawl_error, search_text, embedding`

func scanDocument(row interface{ Scan(...any) error }) (models.Document, error) {
	var (
		doc                                         models.Document
		title, description, content, notes, tagsRaw sql.NullString
		crawlError                                  sql.NullString
		crawledAt, httpStatus                        sql.NullInt64
		addedAt, updatedAt                          int64
		embeddingRaw                                 []byte
	)
	err := row.Scan(
		&doc.ID, &doc.URL, &title, &description, &content, &notes, &tagsRaw, &doc.Hidden,
		&addedAt, &updatedAt, &crawledAt, &httpStatus, &crawlError, &doc.SearchText, &embeddingRaw,
	)
	if err != nil {
		return models.Document{}, err
	}
	doc.Title = title.String
	doc.Description = description.String
	doc.Content = content.String
	doc.Notes = notes.String
	doc.AddedAt = time.Unix(addedAt, 0).UTC()
	doc.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if crawledAt.Valid {
		t := time.Unix(crawledAt.Int64, 0).UTC()
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
		doc.Embedding = decodeEmbedding(embeddingRaw)
	}
	return doc, nil
}

func (d *DB) GetByID(ctx context.Context, id string) (models.Document, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Document{}, models.ErrNotFound("document not found: " + id)
		}
		return models.Document{}, wrapDBErr("get_by_id", err)
	}
	return doc, nil
}

func (d *DB) GetByURL(ctx context.Context, url string) (models.Document, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM documents WHERE url = ?", url)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Document{}, models.ErrNotFound("document not found: " + url)
		}
		return models.Document{}, wrapDBErr("get_by_url", err)
	}
	return doc, nil
}

func (d *DB) List(ctx context.Context, limit, offset int) (store.ListResult, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM documents
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return store.ListResult{}, wrapDBErr("list", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return store.ListResult{}, wrapDBErr("list", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return store.ListResult{}, wrapDBErr("list", err)
	}

	var total int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&total); err != nil {
		return store.ListResult{}, wrapDBErr("list", err)
	}

	initialized, err := d.VectorInitialized(ctx)
	if err != nil {
		return store.ListResult{}, err
	}
	var pending int
	if initialized {
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE embedding IS NULL").Scan(&pending); err != nil {
			return store.ListResult{}, wrapDBErr("list", err)
		}
	}

	return store.ListResult{Documents: docs, TotalCount: total, PendingEmbeddings: pending}, nil
}

func (d *DB) RemoveByURL(ctx context.Context, url string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, "DELETE FROM documents WHERE url = ?", url)
	if err != nil {
		return false, wrapDBErr("remove_by_url", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		if err := d.cache.invalidateAllLocked(ctx); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

func (d *DB) RemoveByID(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return false, wrapDBErr("remove_by_id", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		if err := d.cache.invalidateAllLocked(ctx); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

// globToLike converts a URL glob pattern (`*` any run, `?` any one
// character) into a SQL LIKE pattern, escaping any LIKE metacharacter
// already present in the user's input so it is matched literally.
func globToLike(pattern string) (likePattern string, escape byte) {
	const esc = '\\'
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', rune(esc):
			b.WriteByte(esc)
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), esc
}

func (d *DB) RemoveByGlob(ctx context.Context, pattern string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	like, esc := globToLike(pattern)
	rows, err := d.db.QueryContext(ctx, "SELECT url FROM documents WHERE url LIKE ? ESCAPE ?", like, string(esc))
	if err != nil {
		return nil, wrapDBErr("remove_by_glob", err)
	}
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			rows.Close()
			return nil, wrapDBErr("remove_by_glob", err)
		}
		urls = append(urls, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("remove_by_glob", err)
	}

	if len(urls) == 0 {
		return nil, nil
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM documents WHERE url LIKE ? ESCAPE ?", like, string(esc)); err != nil {
		return nil, wrapDBErr("remove_by_glob", err)
	}
	if err := d.cache.invalidateAllLocked(ctx); err != nil {
		return nil, err
	}
	return urls, nil
}

func (d *DB) UpdateTimestamp(ctx context.Context, url string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, "UPDATE documents SET updated_at = ? WHERE url = ?", time.Now().UTC().Unix(), url)
	if err != nil {
		return false, wrapDBErr("update_timestamp", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *DB) ToggleHidden(ctx context.Context, idOrURL string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var hidden bool
	var rowID string
	err := d.db.QueryRowContext(ctx, "SELECT id, hidden FROM documents WHERE id = ? OR url = ?", idOrURL, idOrURL).Scan(&rowID, &hidden)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, models.ErrNotFound("document not found: " + idOrURL)
		}
		return false, wrapDBErr("toggle_hidden", err)
	}

	newHidden := !hidden
	now := time.Now().UTC().Unix()
	if _, err := d.db.ExecContext(ctx, "UPDATE documents SET hidden = ?, updated_at = ? WHERE id = ?", newHidden, now, rowID); err != nil {
		return false, wrapDBErr("toggle_hidden", err)
	}
	if err := d.cache.invalidateAllLocked(ctx); err != nil {
		return false, err
	}
	return newHidden, nil
}

func (d *DB) CrawlUpdate(ctx context.Context, url string, in store.CrawlUpdateInput) (bool, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var id, priorURL, priorTitle, priorDescription, priorContent, priorNotes sql.NullString
	row := d.db.QueryRowContext(ctx, "SELECT id, url, title, description, content, notes FROM documents WHERE url = ?", url)
	if err := row.Scan(&id, &priorURL, &priorTitle, &priorDescription, &priorContent, &priorNotes); err != nil {
		if err == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, wrapDBErr("crawl_update", err)
	}

	contentChanged := in.HasContent && in.Content != priorContent.String

	newTitle := priorTitle.String
	if in.Title != nil {
		newTitle = *in.Title
	}
	newDescription := priorDescription.String
	if in.Description != nil {
		newDescription = *in.Description
	}
	newContent := priorContent.String
	if in.HasContent {
		newContent = in.Content
	}

	searchText := models.ComputeSearchText(priorURL.String, newTitle, newDescription, newContent, priorNotes.String)
	now := time.Now().UTC().Unix()

	clearEmbedding := contentChanged

	query := `UPDATE documents SET title = ?, description = ?, content = ?, http_status = ?, crawl_error = ?,
		search_text = ?, crawled_at = ?, updated_at = ?`
	args := []any{newTitle, newDescription, newContent, in.HTTPStatus, in.CrawlError, searchText, now, now}
	if clearEmbedding {
		query += ", embedding = NULL"
	}
	query += " WHERE id = ?"
	args = append(args, id.String)

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return false, false, wrapDBErr("crawl_update", err)
	}

	if contentChanged {
		if err := d.cache.invalidateAllLocked(ctx); err != nil {
			return false, false, err
		}
	}
	return true, contentChanged, nil
}

func (d *DB) ListToCrawl(ctx context.Context, selector models.ListSelector) ([]string, error) {
	var query string
	var args []any

	switch selector.Mode {
	case models.SelectorMissing:
		query = "SELECT url FROM documents WHERE crawled_at IS NULL AND hidden = 0 ORDER BY added_at ASC"
	case models.SelectorAll:
		query = "SELECT url FROM documents WHERE hidden = 0 ORDER BY added_at ASC"
	case models.SelectorOld:
		cutoff := time.Now().UTC().AddDate(0, 0, -selector.Days).Unix()
		query = `SELECT url FROM documents
			WHERE (crawled_at IS NULL OR crawled_at < ?) AND hidden = 0
			ORDER BY crawled_at IS NOT NULL, crawled_at ASC, added_at ASC`
		args = []any{cutoff}
	case models.SelectorURL:
		query = "SELECT url FROM documents WHERE url = ?"
		args = []any{selector.URL}
	default:
		return nil, models.ErrInvalidf("unknown selector: %s", selector.Mode)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErr("list_to_crawl", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, wrapDBErr("list_to_crawl", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// SearchableDocuments returns every document not excluded by the
// standard filter (not hidden, http_status < 400 or never fetched).
func (d *DB) SearchableDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM documents
		WHERE hidden = 0 AND (http_status IS NULL OR http_status < 400)
	`)
	if err != nil {
		return nil, wrapDBErr("searchable_documents", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, wrapDBErr("searchable_documents", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
