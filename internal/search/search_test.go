package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/embedder"
	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/search"
	"github.com/tarslinks/linkhive/internal/store"
	"github.com/tarslinks/linkhive/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := sqlite.Open(logger, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLexicalSearchRanksExactMatchFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	logger := arbor.NewLogger()

	_, err := db.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)
	docA, err := db.GetByURL(ctx, "https://a.example.com")
	require.NoError(t, err)
	_, _, err = db.CrawlUpdate(ctx, docA.URL, crawlInput("Go Concurrency Patterns", "goroutines and channels in depth"))
	require.NoError(t, err)

	_, err = db.Insert(ctx, "https://b.example.com")
	require.NoError(t, err)
	docB, err := db.GetByURL(ctx, "https://b.example.com")
	require.NoError(t, err)
	_, _, err = db.CrawlUpdate(ctx, docB.URL, crawlInput("Baking Bread", "yeast and flour"))
	require.NoError(t, err)

	lex := search.NewLexical(db.Raw(), logger)
	results, err := lex.Search(ctx, "goroutines channels", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "https://a.example.com", results[0].Document.URL)
}

func TestLexicalSearchEmptyQueryReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	logger := arbor.NewLogger()

	lex := search.NewLexical(db.Raw(), logger)
	results, err := lex.Search(ctx, "   ", 10)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestDenseSearchFailsWhenVectorNotInitialized(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	logger := arbor.NewLogger()

	dense := search.NewDense(db, embedder.NewStatic(), logger)
	_, err := dense.Search(ctx, "anything", 10, 1.0)
	require.Error(t, err)
	require.Equal(t, models.KindVectorNotInitialized, models.KindOf(err))
}

func TestDenseSearchReturnsNearestAfterInit(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	logger := arbor.NewLogger()
	require.NoError(t, db.InitVector(ctx))

	_, err := db.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)
	docA, err := db.GetByURL(ctx, "https://a.example.com")
	require.NoError(t, err)
	_, _, err = db.CrawlUpdate(ctx, docA.URL, crawlInput("Go Concurrency Patterns", "goroutines and channels"))
	require.NoError(t, err)
	docA, err = db.GetByURL(ctx, docA.URL)
	require.NoError(t, err)

	emb := embedder.NewStatic()
	vec, err := emb.Embed(ctx, docA.SearchText)
	require.NoError(t, err)
	ok, err := db.SetEmbedding(ctx, docA.ID, docA.SearchText, vec)
	require.NoError(t, err)
	require.True(t, ok)

	dense := search.NewDense(db, emb, logger)
	results, err := dense.Search(ctx, docA.SearchText, 10, 1.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, docA.ID, results[0].Document.ID)
	require.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestHybridSearchFusesAndCaches(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	logger := arbor.NewLogger()
	require.NoError(t, db.InitVector(ctx))

	_, err := db.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)
	docA, err := db.GetByURL(ctx, "https://a.example.com")
	require.NoError(t, err)
	_, _, err = db.CrawlUpdate(ctx, docA.URL, crawlInput("Go Concurrency Patterns", "goroutines and channels"))
	require.NoError(t, err)
	docA, err = db.GetByURL(ctx, docA.URL)
	require.NoError(t, err)

	emb := embedder.NewStatic()
	vec, err := emb.Embed(ctx, docA.SearchText)
	require.NoError(t, err)
	_, err = db.SetEmbedding(ctx, docA.ID, docA.SearchText, vec)
	require.NoError(t, err)

	lex := search.NewLexical(db.Raw(), logger)
	dense := search.NewDense(db, emb, logger)
	hybrid := search.NewHybrid(lex, dense, db.Cache(), logger)

	params := search.Params{
		Query:       "goroutines channels",
		KeywordWt:   0.5,
		VectorWt:    0.5,
		MinScore:    0.0,
		MaxDistance: 1.0,
		Limit:       10,
		Offset:      0,
		UseCache:    true,
	}

	results, total, err := hybrid.Search(ctx, params)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, results, 1)
	require.Equal(t, docA.ID, results[0].Document.ID)
	require.Equal(t, 1, results[0].KeywordRank)
	require.Equal(t, 1, results[0].VectorRank)

	// Second identical call should be served from the cache entry
	// written above rather than re-running fusion.
	results2, total2, err := hybrid.Search(ctx, params)
	require.NoError(t, err)
	require.Equal(t, total, total2)
	require.Len(t, results2, 1)
	require.Equal(t, results[0].Document.ID, results2[0].Document.ID)
}

func TestHybridSearchFailsWhenVectorNotInitialized(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	logger := arbor.NewLogger()

	_, err := db.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)

	lex := search.NewLexical(db.Raw(), logger)
	dense := search.NewDense(db, embedder.NewStatic(), logger)
	hybrid := search.NewHybrid(lex, dense, db.Cache(), logger)

	_, _, err = hybrid.Search(ctx, search.Params{
		Query:     "anything",
		KeywordWt: 0.5,
		VectorWt:  0.5,
		Limit:     10,
	})
	require.Error(t, err)
	require.Equal(t, models.KindVectorNotInitialized, models.KindOf(err))
}

func crawlInput(title, content string) store.CrawlUpdateInput {
	return store.CrawlUpdateInput{
		Title:      &title,
		Content:    content,
		HasContent: true,
	}
}
