package ragkit

import (
	"log/slog"

	"github.com/ragkit/ragkit/blobstore"
	"github.com/ragkit/ragkit/chunker"
	"github.com/ragkit/ragkit/codec"
	"github.com/ragkit/ragkit/embedding"
	"github.com/ragkit/ragkit/index"
	"github.com/ragkit/ragkit/persistence"
)

type options struct {
	chunkerOptions   []func(*chunker.Options)
	embeddingOptions []func(*embedding.Options)
	indexOptions     []func(*index.Options)
	codec            codec.Codec
	compression      persistence.Compression
	store            blobstore.Store
	storePath        string
	topK             int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithChunkSize configures the maximum fragment length in runes.
func WithChunkSize(maxLength int) Option {
	return func(o *options) {
		o.chunkerOptions = append(o.chunkerOptions, func(co *chunker.Options) {
			co.MaxLength = maxLength
		})
	}
}

// WithChunkOverlap configures the number of runes adjacent fragments share.
func WithChunkOverlap(overlap int) Option {
	return func(o *options) {
		o.chunkerOptions = append(o.chunkerOptions, func(co *chunker.Options) {
			co.Overlap = overlap
		})
	}
}

// WithEmbeddingOptions configures the embedding orchestrator (batch
// size, concurrency, rate limit).
func WithEmbeddingOptions(optFns ...func(*embedding.Options)) Option {
	return func(o *options) {
		o.embeddingOptions = append(o.embeddingOptions, optFns...)
	}
}

// WithIndexOptions configures the vector index (workers, parallel
// scan threshold).
func WithIndexOptions(optFns ...func(*index.Options)) Option {
	return func(o *options) {
		o.indexOptions = append(o.indexOptions, optFns...)
	}
}

// WithCodec configures the codec used for the persisted metadata payload.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the compression of persisted artifacts.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithStore configures where snapshots are persisted. Use this to point
// the engine at S3, MinIO, or an in-memory store; when unset, a local
// directory store at the configured path is used.
func WithStore(store blobstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithStorePath configures the directory of the default local store.
// Ignored when WithStore is set.
func WithStorePath(path string) Option {
	return func(o *options) {
		o.storePath = path
	}
}

// WithTopK configures the default number of results per query.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      persistence.CompressionZstd,
		storePath:        "ragkit-store",
		topK:             5,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
