package ragkit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit/blobstore"
	"github.com/ragkit/ragkit/embedding"
	"github.com/ragkit/ragkit/metadata"
)

// letterEncoder embeds text as lowercase letter counts. Deterministic,
// so distances in these tests are exact.
func letterEncoder() embedding.Encoder {
	return embedding.EncoderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			v := make([]float32, 26)
			for _, r := range strings.ToLower(text) {
				if r >= 'a' && r <= 'z' {
					v[r-'a']++
				}
			}
			out[i] = v
		}
		return out, nil
	})
}

func newTestEngine(t *testing.T, optFns ...Option) *Engine {
	t.Helper()

	base := []Option{
		WithStore(blobstore.NewMemory()),
		WithChunkSize(20),
		WithChunkOverlap(0),
	}

	engine, err := New(letterEncoder(), append(base, optFns...)...)
	require.NoError(t, err)

	return engine
}

func TestNew(t *testing.T) {
	t.Run("NilEncoder", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("InvalidChunking", func(t *testing.T) {
		_, err := New(letterEncoder(),
			WithStore(blobstore.NewMemory()),
			WithChunkSize(10),
			WithChunkOverlap(10),
		)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()

	docs := []Document{
		{Text: "The cat sat.", Metadata: map[string]string{"source": "a.txt"}},
		{Text: "A dog ran far.", Metadata: map[string]string{"source": "b.txt"}},
	}

	t.Run("QueryBeforeBuild", func(t *testing.T) {
		engine := newTestEngine(t)
		assert.False(t, engine.Ready())

		_, err := engine.Query(ctx, "cat")
		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("BuildThenQuery", func(t *testing.T) {
		engine := newTestEngine(t)

		require.NoError(t, engine.Build(ctx, docs))
		assert.True(t, engine.Ready())
		assert.Equal(t, 2, engine.Count())

		results, err := engine.Query(ctx, "cat", func(o *QueryOptions) { o.K = 2 })
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "The cat sat.", results[0].Metadata.Text)
		assert.Equal(t, "a.txt", results[0].Metadata.Attributes["source"])
		assert.InDelta(t, float32(8), results[0].Score, 1e-6)

		assert.Equal(t, "A dog ran far.", results[1].Metadata.Text)
		assert.InDelta(t, float32(15), results[1].Score, 1e-6)
	})

	t.Run("LoadBeforeAnyBuild", func(t *testing.T) {
		engine := newTestEngine(t)

		err := engine.Load(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, engine.Ready())
	})

	t.Run("LoadRestoresBuiltState", func(t *testing.T) {
		store := blobstore.NewMemory()

		builder := newTestEngine(t, WithStore(store))
		require.NoError(t, builder.Build(ctx, docs))

		loader := newTestEngine(t, WithStore(store))
		require.NoError(t, loader.Load(ctx))
		assert.Equal(t, builder.Count(), loader.Count())

		got, err := loader.Query(ctx, "cat", func(o *QueryOptions) { o.K = 1 })
		require.NoError(t, err)

		want, err := builder.Query(ctx, "cat", func(o *QueryOptions) { o.K = 1 })
		require.NoError(t, err)

		assert.Equal(t, want, got)
	})

	t.Run("RebuildReplacesState", func(t *testing.T) {
		engine := newTestEngine(t)

		require.NoError(t, engine.Build(ctx, docs))
		require.Equal(t, 2, engine.Count())

		require.NoError(t, engine.Build(ctx, []Document{
			{Text: "Only one now.", Metadata: map[string]string{"source": "c.txt"}},
		}))
		assert.Equal(t, 1, engine.Count())

		results, err := engine.Query(ctx, "one")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "c.txt", results[0].Metadata.Attributes["source"])
	})

	t.Run("IdempotentRebuild", func(t *testing.T) {
		engine := newTestEngine(t)

		require.NoError(t, engine.Build(ctx, docs))
		first, err := engine.Query(ctx, "cat", func(o *QueryOptions) { o.K = 2 })
		require.NoError(t, err)

		require.NoError(t, engine.Build(ctx, docs))
		assert.Equal(t, 2, engine.Count())

		second, err := engine.Query(ctx, "cat", func(o *QueryOptions) { o.K = 2 })
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("BuildWithNoDocuments", func(t *testing.T) {
		engine := newTestEngine(t)

		require.NoError(t, engine.Build(ctx, nil))
		assert.True(t, engine.Ready())
		assert.Equal(t, 0, engine.Count())

		results, err := engine.Query(ctx, "anything")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Reset", func(t *testing.T) {
		engine := newTestEngine(t)

		require.NoError(t, engine.Build(ctx, docs))
		engine.Reset()

		assert.False(t, engine.Ready())

		_, err := engine.Query(ctx, "cat")
		assert.ErrorIs(t, err, ErrNotInitialized)

		// The snapshot survives a reset.
		require.NoError(t, engine.Load(ctx))
		assert.Equal(t, 2, engine.Count())
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	docs := []Document{
		{Text: "The cat sat.", Metadata: map[string]string{"source": "a.txt"}},
		{Text: "A dog ran far.", Metadata: map[string]string{"source": "b.txt"}},
		{Text: "The cat ran.", Metadata: map[string]string{"source": "b.txt"}},
	}

	t.Run("DefaultK", func(t *testing.T) {
		engine := newTestEngine(t, WithTopK(2))
		require.NoError(t, engine.Build(ctx, docs))

		results, err := engine.Query(ctx, "cat")
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("InvalidK", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.Build(ctx, docs))

		_, err := engine.Query(ctx, "cat", func(o *QueryOptions) { o.K = 0 })
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("KLargerThanCount", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.Build(ctx, docs))

		results, err := engine.Query(ctx, "cat", func(o *QueryOptions) { o.K = 50 })
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("AttributeFilter", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.Build(ctx, docs))

		results, err := engine.Query(ctx, "cat", func(o *QueryOptions) {
			o.K = 10
			o.Filters = []metadata.Filter{metadata.Eq("source", "b.txt")}
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		for _, r := range results {
			assert.Equal(t, "b.txt", r.Metadata.Attributes["source"])
		}
	})

	t.Run("FilterMatchingNothing", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.Build(ctx, docs))

		results, err := engine.Query(ctx, "cat", func(o *QueryOptions) {
			o.Filters = []metadata.Filter{metadata.Eq("source", "missing.txt")}
		})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("ScoresAscend", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.Build(ctx, docs))

		results, err := engine.Query(ctx, "the cat", func(o *QueryOptions) { o.K = 3 })
		require.NoError(t, err)
		require.Len(t, results, 3)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i].Score, results[i-1].Score)
		}
	})
}

func TestBuildFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("provider down")

	var fail bool

	flaky := embedding.EncoderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if fail {
			return nil, boom
		}
		return letterEncoder().Encode(ctx, texts)
	})

	engine, err := New(flaky,
		WithStore(blobstore.NewMemory()),
		WithChunkSize(20),
		WithChunkOverlap(0),
	)
	require.NoError(t, err)

	require.NoError(t, engine.Build(ctx, []Document{{Text: "The cat sat."}}))
	require.Equal(t, 1, engine.Count())

	fail = true
	err = engine.Build(ctx, []Document{{Text: "A dog ran far."}})
	assert.ErrorIs(t, err, boom)

	// The old pair still serves queries.
	fail = false
	assert.Equal(t, 1, engine.Count())

	results, err := engine.Query(ctx, "cat")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The cat sat.", results[0].Metadata.Text)
}

func TestMetricsCollection(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetricsCollector{}
	engine := newTestEngine(t, WithMetricsCollector(metrics))

	require.NoError(t, engine.Build(ctx, []Document{{Text: "The cat sat."}}))

	_, err := engine.Query(ctx, "cat")
	require.NoError(t, err)

	_, err = engine.Query(ctx, "cat", func(o *QueryOptions) { o.K = -1 })
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.BuildCount)
	assert.Equal(t, int64(1), stats.BuildFragments)
	assert.Equal(t, int64(2), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryErrors)
}

func TestChunkedDocumentRetrieval(t *testing.T) {
	ctx := context.Background()

	// Long enough to split, so query hits carry chunk attributes.
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 4)

	engine := newTestEngine(t, WithChunkSize(60), WithChunkOverlap(10))
	require.NoError(t, engine.Build(ctx, []Document{
		{Text: text, Metadata: map[string]string{"source": "fox.txt"}},
	}))
	require.Greater(t, engine.Count(), 1)

	results, err := engine.Query(ctx, "quick brown fox", func(o *QueryOptions) { o.K = 1 })
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fox.txt", results[0].Metadata.Attributes["source"])
	assert.Contains(t, results[0].Metadata.Attributes, "chunk")
}
