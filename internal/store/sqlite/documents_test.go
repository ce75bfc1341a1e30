package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := Open(logger, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	id, err := db.Insert(ctx, "https://example.com")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := db.GetByURL(ctx, "https://example.com")
	require.NoError(t, err)
	require.Equal(t, id, doc.ID)
	require.Equal(t, doc.AddedAt, doc.UpdatedAt)
}

func TestInsertDuplicateURLFailsAlreadyExists(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.Insert(ctx, "https://example.com")
	require.NoError(t, err)

	_, err = db.Insert(ctx, "https://example.com")
	require.Error(t, err)
	require.Equal(t, models.KindAlreadyExists, models.KindOf(err))
}

func TestListPendingEmbeddingsCountsZeroBeforeVectorInit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := db.Insert(ctx, "https://example.com")
	require.NoError(t, err)

	res, err := db.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
	require.Equal(t, 0, res.PendingEmbeddings)

	require.NoError(t, db.InitVector(ctx))
	res, err = db.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.PendingEmbeddings)
}

func TestCrawlUpdateSetsContentChangedAndClearsEmbedding(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.InitVector(ctx))

	_, err := db.Insert(ctx, "https://example.com")
	require.NoError(t, err)
	doc, err := db.GetByURL(ctx, "https://example.com")
	require.NoError(t, err)

	ok, err := db.SetEmbedding(ctx, doc.ID, doc.SearchText, make([]float32, models.EmbeddingDimension))
	require.NoError(t, err)
	require.True(t, ok)

	status := 200
	title := "Hi"
	updated, changed, err := db.CrawlUpdate(ctx, "https://example.com", store.CrawlUpdateInput{
		Title:      &title,
		Content:    "Hello world",
		HasContent: true,
		HTTPStatus: &status,
	})
	require.NoError(t, err)
	require.True(t, updated)
	require.True(t, changed)

	doc, err = db.GetByURL(ctx, "https://example.com")
	require.NoError(t, err)
	require.Nil(t, doc.Embedding)
	require.Equal(t, "Hi", doc.Title)
	require.Equal(t, "Hello world", doc.Content)

	// Second identical call: content unchanged, embedding untouched.
	updated, changed, err = db.CrawlUpdate(ctx, "https://example.com", store.CrawlUpdateInput{
		Title:      &title,
		Content:    "Hello world",
		HasContent: true,
		HTTPStatus: &status,
	})
	require.NoError(t, err)
	require.True(t, updated)
	require.False(t, changed)
}

func TestToggleHiddenTwiceRestoresOriginal(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := db.Insert(ctx, "https://example.com")
	require.NoError(t, err)

	h1, err := db.ToggleHidden(ctx, "https://example.com")
	require.NoError(t, err)
	require.True(t, h1)

	h2, err := db.ToggleHidden(ctx, "https://example.com")
	require.NoError(t, err)
	require.False(t, h2)
}

func TestRemoveByGlobStarRemovesEverything(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := db.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)
	_, err = db.Insert(ctx, "https://b.example.com")
	require.NoError(t, err)

	urls, err := db.RemoveByGlob(ctx, "*")
	require.NoError(t, err)
	require.Len(t, urls, 2)

	res, err := db.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 0, res.TotalCount)
}

func TestRemoveByGlobEscapesLikeMetacharacters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := db.Insert(ctx, "https://example.com/100%")
	require.NoError(t, err)
	_, err = db.Insert(ctx, "https://example.com/100X")
	require.NoError(t, err)

	urls, err := db.RemoveByGlob(ctx, "*100%")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/100%"}, urls)
}

func TestListToCrawlMissingExcludesHiddenAndCrawled(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := db.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)
	_, err = db.Insert(ctx, "https://b.example.com")
	require.NoError(t, err)
	_, err = db.ToggleHidden(ctx, "https://b.example.com")
	require.NoError(t, err)

	urls, err := db.ListToCrawl(ctx, models.ListSelector{Mode: models.SelectorMissing})
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example.com"}, urls)
}

func TestCacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	key := models.NewSearchCacheKey("hello", 0.5, 0.5)
	require.NoError(t, db.Cache().Put(ctx, models.SearchCacheEntry{
		Key:        key,
		TotalCount: 1,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}))

	entry, err := db.Cache().Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)

	_, err = db.Insert(ctx, "https://example.com")
	require.NoError(t, err)

	entry, err = db.Cache().Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, entry)
}
