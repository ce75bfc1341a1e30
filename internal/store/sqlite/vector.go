package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"

	"github.com/tarslinks/linkhive/internal/store"
)

// encodeEmbedding packs a float32 vector into a little-endian byte
// blob for the embedding column.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(raw []byte) []float32 {
	n := len(raw) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}

// VectorInitialized reports whether the dense index has been set up.
// The embedding column always exists in this schema (unlike the
// original Postgres reference, where it could be entirely absent);
// "initialized" instead tracks whether `db vector init` has run, so
// that dense/hybrid search behave per spec before that step.
func (d *DB) VectorInitialized(ctx context.Context) (bool, error) {
	var initialized bool
	err := d.db.QueryRowContext(ctx, "SELECT initialized FROM vector_index_state WHERE id = 1").Scan(&initialized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, wrapDBErr("vector_initialized", err)
	}
	return initialized, nil
}

func (d *DB) InitVector(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO vector_index_state (id, initialized) VALUES (1, 1)
		ON CONFLICT(id) DO UPDATE SET initialized = 1
	`)
	if err != nil {
		return wrapDBErr("init_vector", err)
	}
	return nil
}

func (d *DB) SetEmbedding(ctx context.Context, id string, searchTextSnapshot string, embedding []float32) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, `
		UPDATE documents SET embedding = ? WHERE id = ? AND search_text = ?
	`, encodeEmbedding(embedding), id, searchTextSnapshot)
	if err != nil {
		return false, wrapDBErr("set_embedding", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (d *DB) AllEmbedded(ctx context.Context) ([]store.EmbeddedDoc, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, embedding FROM documents
		WHERE embedding IS NOT NULL AND hidden = 0 AND (http_status IS NULL OR http_status < 400)
	`)
	if err != nil {
		return nil, wrapDBErr("all_embedded", err)
	}
	defer rows.Close()

	var out []store.EmbeddedDoc
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, wrapDBErr("all_embedded", err)
		}
		out = append(out, store.EmbeddedDoc{ID: id, Embedding: decodeEmbedding(raw)})
	}
	return out, rows.Err()
}
