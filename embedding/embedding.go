// Package embedding turns fragment text into vectors through a
// pluggable Encoder, batching and rate-limiting the calls while keeping
// output order aligned with input order.
package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Encoder produces one vector per input text, in input order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Encode implements Encoder.
func (f EncoderFunc) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// ErrCountMismatch indicates an encoder that returned a different
// number of vectors than texts it was given.
type ErrCountMismatch struct {
	Texts   int
	Vectors int
}

func (e *ErrCountMismatch) Error() string {
	return fmt.Sprintf("embedding: encoder returned %d vectors for %d texts", e.Vectors, e.Texts)
}

// ErrDimensionMismatch indicates a vector whose dimension differs from
// the first one the encoder produced.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding: vector dimension mismatch: expected=%d, actual=%d", e.Expected, e.Actual)
}

// Options contains configuration options for the orchestrator.
type Options struct {
	// BatchSize is the number of texts sent per encoder call.
	BatchSize int

	// MaxConcurrency bounds in-flight encoder calls.
	MaxConcurrency int

	// RequestsPerSecond throttles encoder calls. Zero disables throttling.
	RequestsPerSecond float64
}

// DefaultOptions contains the default configuration options for the orchestrator.
var DefaultOptions = Options{
	BatchSize:      32,
	MaxConcurrency: 4,
}

// Orchestrator drives an Encoder over fragment batches. The first
// vector ever produced pins the dimension; every later vector must
// match it.
type Orchestrator struct {
	encoder Encoder
	opts    Options
	limiter *rate.Limiter
	dim     atomic.Int32
}

// New creates a new orchestrator around the encoder.
func New(encoder Encoder, optFns ...func(o *Options)) *Orchestrator {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}

	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Orchestrator{
		encoder: encoder,
		opts:    opts,
		limiter: limiter,
	}
}

// EmbedTexts embeds all texts, preserving order: out[i] is the vector
// for texts[i]. It is all-or-nothing: any batch failure fails the whole
// call and no partial result is returned.
func (o *Orchestrator) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxConcurrency)

	for start := 0; start < len(texts); start += o.opts.BatchSize {
		end := start + o.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			if o.limiter != nil {
				if err := o.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			vectors, err := o.encoder.Encode(gctx, texts[start:end])
			if err != nil {
				return err
			}

			if len(vectors) != end-start {
				return &ErrCountMismatch{Texts: end - start, Vectors: len(vectors)}
			}

			for i, v := range vectors {
				if err := o.checkDimension(v); err != nil {
					return err
				}

				out[start+i] = v
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// EmbedQuery embeds a single query text.
func (o *Orchestrator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vectors, err := o.encoder.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(vectors) != 1 {
		return nil, &ErrCountMismatch{Texts: 1, Vectors: len(vectors)}
	}

	if err := o.checkDimension(vectors[0]); err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// Dimension returns the pinned vector dimension, or zero before the
// first embedding.
func (o *Orchestrator) Dimension() int {
	return int(o.dim.Load())
}

func (o *Orchestrator) checkDimension(v []float32) error {
	if len(v) == 0 {
		return &ErrDimensionMismatch{Expected: o.Dimension(), Actual: 0}
	}

	if o.dim.CompareAndSwap(0, int32(len(v))) {
		return nil
	}

	if expected := o.Dimension(); expected != len(v) {
		return &ErrDimensionMismatch{Expected: expected, Actual: len(v)}
	}

	return nil
}
