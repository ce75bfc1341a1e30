package embedder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarslinks/linkhive/internal/embedder"
	"github.com/tarslinks/linkhive/internal/models"
)

func TestStaticEmbedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	e := embedder.NewStatic()

	v1, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)

	require.Len(t, v1, models.EmbeddingDimension)
	require.Equal(t, v1, v2)
}

func TestStaticEmbedEmptyTextReturnsZeroVector(t *testing.T) {
	ctx := context.Background()
	e := embedder.NewStatic()

	v, err := e.Embed(ctx, "   ")
	require.NoError(t, err)
	require.Len(t, v, models.EmbeddingDimension)
	for _, f := range v {
		require.Zero(t, f)
	}
}

func TestStaticEmbedDistinctTextsDiffer(t *testing.T) {
	ctx := context.Background()
	e := embedder.NewStatic()

	v1, err := e.Embed(ctx, "goroutines and channels")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "yeast and flour")
	require.NoError(t, err)

	require.NotEqual(t, v1, v2)
}
