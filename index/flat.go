package index

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ragkit/ragkit/distance"
)

// checkEvery bounds how many rows a scan processes between context checks.
const checkEvery = 1024

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension fixes the vector dimension up front. Zero defers it to
	// the first Add.
	Dimension int

	// NumWorkers is the number of goroutines used for parallel scans.
	NumWorkers int

	// ParallelThreshold is the minimum number of stored vectors before a
	// scan is split across workers.
	ParallelThreshold int
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	NumWorkers:        runtime.GOMAXPROCS(0),
	ParallelThreshold: 4096,
}

// Flat is an exact nearest-neighbor index. Add establishes the
// dimension on first use; all later vectors must match it.
//
// Flat is not safe for concurrent mutation. Concurrent Search calls are
// safe as long as no Add runs at the same time; the engine guarantees
// this by swapping in fully built indexes.
type Flat struct {
	opts  Options
	dim   int
	count int
	data  []float32
}

// New creates a new flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}

	return &Flat{opts: opts, dim: opts.Dimension}, nil
}

// Restore creates a flat index over a persisted row-major buffer.
func Restore(dim int, data []float32) (*Flat, error) {
	if dim <= 0 {
		return nil, ErrEmptyVector
	}

	if len(data)%dim != 0 {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(data) % dim}
	}

	f, err := New(func(o *Options) { o.Dimension = dim })
	if err != nil {
		return nil, err
	}

	f.data = data
	f.count = len(data) / dim

	return f, nil
}

// Add appends vectors in order, assigning them the next ordinals. All
// vectors are validated before any of them is stored, so a failed Add
// leaves the index unchanged.
func (f *Flat) Add(_ context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	dim := f.dim
	if dim == 0 {
		if len(vectors[0]) == 0 {
			return ErrEmptyVector
		}

		dim = len(vectors[0])
	}

	for _, v := range vectors {
		if len(v) == 0 {
			return ErrEmptyVector
		}

		if len(v) != dim {
			return &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
	}

	f.dim = dim

	for _, v := range vectors {
		f.data = append(f.data, v...)
	}

	f.count += len(vectors)

	return nil
}

// Search returns the k nearest stored vectors to the query, ordered by
// ascending distance with ascending ordinal breaking ties. A nil filter
// admits every ordinal. Searching an empty index returns no results and
// no error.
func (f *Flat) Search(ctx context.Context, query []float32, k int, filter func(uint32) bool) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	if len(query) == 0 {
		return nil, ErrEmptyVector
	}

	if f.count == 0 {
		return nil, nil
	}

	if len(query) != f.dim {
		return nil, &ErrDimensionMismatch{Expected: f.dim, Actual: len(query)}
	}

	if f.count < f.opts.ParallelThreshold || f.opts.NumWorkers < 2 {
		pq, err := f.scan(ctx, query, k, filter, 0, f.count)
		if err != nil {
			return nil, err
		}

		return pq.Drain(), nil
	}

	return f.searchParallel(ctx, query, k, filter)
}

func (f *Flat) searchParallel(ctx context.Context, query []float32, k int, filter func(uint32) bool) ([]SearchResult, error) {
	workers := f.opts.NumWorkers
	queues := make([]*resultQueue, workers)
	chunk := (f.count + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		lo := w * chunk

		hi := lo + chunk
		if hi > f.count {
			hi = f.count
		}

		if lo >= hi {
			break
		}

		g.Go(func() error {
			pq, err := f.scan(gctx, query, k, filter, lo, hi)
			if err != nil {
				return err
			}

			queues[w] = pq

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newResultQueue(k)

	for _, pq := range queues {
		if pq == nil {
			continue
		}

		for _, c := range pq.Drain() {
			merged.Push(c.Ordinal, c.Distance)
		}
	}

	return merged.Drain(), nil
}

// scan computes distances for rows [lo, hi) and keeps the best k.
func (f *Flat) scan(ctx context.Context, query []float32, k int, filter func(uint32) bool, lo, hi int) (*resultQueue, error) {
	pq := newResultQueue(k)

	for i := lo; i < hi; i++ {
		if i%checkEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		ord := uint32(i)
		if filter != nil && !filter(ord) {
			continue
		}

		row := f.data[i*f.dim : (i+1)*f.dim]
		pq.Push(ord, distance.SquaredL2(query, row))
	}

	return pq, nil
}

// Count returns the number of stored vectors.
func (f *Flat) Count() int {
	return f.count
}

// Dimension returns the established vector dimension, or zero before
// the first Add.
func (f *Flat) Dimension() int {
	return f.dim
}

// Snapshot exposes the dimension and row-major buffer for persistence.
// Callers must not mutate the returned slice.
func (f *Flat) Snapshot() (int, []float32) {
	return f.dim, f.data
}
