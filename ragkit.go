package ragkit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ragkit/ragkit/blobstore"
	"github.com/ragkit/ragkit/chunker"
	"github.com/ragkit/ragkit/config"
	"github.com/ragkit/ragkit/embedding"
	"github.com/ragkit/ragkit/index"
	"github.com/ragkit/ragkit/metadata"
	"github.com/ragkit/ragkit/persistence"
)

// Document is a raw source document handed to Build.
type Document = chunker.Document

// Result is a single query hit: the fragment's metadata record and its
// squared L2 distance to the query (lower is more similar).
type Result struct {
	Score    float32
	Metadata metadata.Record
}

// QueryOptions contains per-query configuration.
type QueryOptions struct {
	// K overrides the engine's default result count.
	K int

	// Filters restricts results to fragments matching every filter.
	Filters []metadata.Filter
}

// pair is an immutable index/metadata snapshot. Queries operate on one
// pair for their whole duration; Build and Load swap in a new pair.
type pair struct {
	idx  *index.Flat
	meta *metadata.Store
}

// Engine is the retrieval façade tying together chunking, embedding,
// indexing, and persistence. It starts empty: queries fail with
// ErrNotInitialized until Build or Load succeeds.
type Engine struct {
	chunker      *chunker.Chunker
	orchestrator *embedding.Orchestrator
	layer        *persistence.Layer
	opts         options

	// buildMu serializes Build, Load, and Reset against each other.
	buildMu sync.Mutex

	// mu guards the current pair. Queries take the read side only long
	// enough to snapshot the pointer.
	mu      sync.RWMutex
	current *pair
}

// New creates a new engine around the encoder.
func New(encoder embedding.Encoder, optFns ...Option) (*Engine, error) {
	if encoder == nil {
		return nil, fmt.Errorf("%w: encoder must not be nil", ErrInvalidConfig)
	}

	opts := applyOptions(optFns)

	ch, err := chunker.New(opts.chunkerOptions...)
	if err != nil {
		return nil, translateError(err)
	}

	store := opts.store
	if store == nil {
		local, err := blobstore.NewLocal(opts.storePath)
		if err != nil {
			return nil, err
		}

		store = local
	}

	layer := persistence.New(store, func(o *persistence.Options) {
		o.Codec = opts.codec
		o.Compression = opts.compression
	})

	return &Engine{
		chunker:      ch,
		orchestrator: embedding.New(encoder, opts.embeddingOptions...),
		layer:        layer,
		opts:         opts,
	}, nil
}

// FromConfig creates an engine from a loaded configuration, wiring an
// OpenAI encoder with the API key from the configured environment
// variable. Explicit options override the configuration.
func FromConfig(cfg *config.Config, optFns ...Option) (*Engine, error) {
	comp, ok := persistence.CompressionByName(cfg.Store.Compression)
	if !ok {
		return nil, fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, cfg.Store.Compression)
	}

	encoder := embedding.NewOpenAIEncoder(os.Getenv(cfg.Embedding.APIKeyEnv), func(o *embedding.OpenAIOptions) {
		o.Model = cfg.Embedding.Model
		o.BaseURL = cfg.Embedding.BaseURL
	})

	base := []Option{
		WithChunkSize(cfg.Chunking.MaxLength),
		WithChunkOverlap(cfg.Chunking.Overlap),
		WithEmbeddingOptions(func(o *embedding.Options) {
			o.BatchSize = cfg.Embedding.BatchSize
			o.MaxConcurrency = cfg.Embedding.MaxConcurrency
			o.RequestsPerSecond = cfg.Embedding.RequestsPerSecond
		}),
		WithStorePath(cfg.Store.Path),
		WithCompression(comp),
		WithTopK(cfg.TopK),
	}

	return New(encoder, append(base, optFns...)...)
}

// Build chunks the documents, embeds every fragment, and swaps in the
// freshly built pair after persisting it. On any failure the engine
// keeps serving its previous state.
func (e *Engine) Build(ctx context.Context, docs []Document) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()

	fragments := e.chunker.Split(docs)

	err := e.build(ctx, fragments)

	e.opts.metricsCollector.RecordBuild(len(fragments), time.Since(start), err)
	e.opts.logger.LogBuild(ctx, len(docs), len(fragments), err)

	return err
}

func (e *Engine) build(ctx context.Context, fragments []chunker.Fragment) error {
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	vectors, err := e.orchestrator.EmbedTexts(ctx, texts)
	if err != nil {
		return translateError(err)
	}

	idx, err := index.New(e.opts.indexOptions...)
	if err != nil {
		return translateError(err)
	}

	if err := idx.Add(ctx, vectors); err != nil {
		return translateError(err)
	}

	records := make([]metadata.Record, len(fragments))
	for i, f := range fragments {
		records[i] = metadata.Record{Text: f.Text, Attributes: f.Metadata}
	}

	meta := metadata.FromRecords(records)

	saveErr := e.layer.Save(ctx, idx, meta)

	e.opts.logger.LogSave(ctx, idx.Count(), saveErr)

	if saveErr != nil {
		return translateError(saveErr)
	}

	e.swap(&pair{idx: idx, meta: meta})

	return nil
}

// Load restores the persisted pair, replacing the current state. It
// returns ErrNotFound when nothing was ever persisted and ErrCorrupt
// when the snapshot fails verification; the current state is kept on
// failure.
func (e *Engine) Load(ctx context.Context) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()

	idx, meta, err := e.layer.Load(ctx)
	err = translateError(err)

	count := 0
	if err == nil {
		count = idx.Count()
	}

	e.opts.metricsCollector.RecordLoad(time.Since(start), err)
	e.opts.logger.LogLoad(ctx, count, err)

	if err != nil {
		return err
	}

	e.swap(&pair{idx: idx, meta: meta})

	return nil
}

// Query embeds the text and returns the k most similar fragments in
// ascending score order. Querying a non-empty engine with no matching
// fragments returns an empty slice and no error.
func (e *Engine) Query(ctx context.Context, text string, optFns ...func(*QueryOptions)) ([]Result, error) {
	qo := QueryOptions{K: e.opts.topK}

	for _, fn := range optFns {
		fn(&qo)
	}

	start := time.Now()

	results, err := e.query(ctx, text, qo)

	e.opts.metricsCollector.RecordQuery(qo.K, time.Since(start), err)
	e.opts.logger.LogQuery(ctx, qo.K, len(results), err)

	return results, err
}

func (e *Engine) query(ctx context.Context, text string, qo QueryOptions) ([]Result, error) {
	if qo.K <= 0 {
		return nil, ErrInvalidK
	}

	p := e.snapshot()
	if p == nil {
		return nil, ErrNotInitialized
	}

	// Nothing to rank; skip the embedding round-trip.
	if p.idx.Count() == 0 {
		return []Result{}, nil
	}

	vector, err := e.orchestrator.EmbedQuery(ctx, text)
	if err != nil {
		return nil, translateError(err)
	}

	hits, err := p.idx.Search(ctx, vector, qo.K, p.meta.FilterFunc(qo.Filters...))
	if err != nil {
		return nil, translateError(err)
	}

	results := make([]Result, len(hits))

	for i, hit := range hits {
		record, err := p.meta.Get(int(hit.Ordinal))
		if err != nil {
			return nil, translateError(err)
		}

		results[i] = Result{Score: hit.Distance, Metadata: record}
	}

	return results, nil
}

// Count returns the number of indexed fragments, zero when empty.
func (e *Engine) Count() int {
	p := e.snapshot()
	if p == nil {
		return 0
	}

	return p.idx.Count()
}

// Ready reports whether Build or Load has succeeded.
func (e *Engine) Ready() bool {
	return e.snapshot() != nil
}

// Reset drops the in-memory state, returning the engine to empty.
// Persisted snapshots are untouched.
func (e *Engine) Reset() {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.swap(nil)
}

func (e *Engine) snapshot() *pair {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.current
}

func (e *Engine) swap(p *pair) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.current = p
}
