// Package persistence saves and restores the index/metadata pair as a
// generation of blobs behind a CURRENT pointer.
//
// A save writes vectors-NNNNNN.bin, metadata-NNNNNN.bin, and
// MANIFEST-NNNNNN.json, then repoints CURRENT. The pointer write is the
// commit: a crash before it leaves the previous generation intact, and
// a crash after it leaves a fully written new generation. Loads verify
// per-artifact CRC32 checksums against both the artifact trailer and
// the manifest.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ragkit/ragkit/blobstore"
	"github.com/ragkit/ragkit/codec"
	"github.com/ragkit/ragkit/index"
	"github.com/ragkit/ragkit/metadata"
)

var (
	// ErrNotFound indicates no persisted snapshot exists.
	ErrNotFound = errors.New("no persisted snapshot found")

	// ErrCorrupt indicates a snapshot that exists but cannot be trusted.
	ErrCorrupt = errors.New("persisted snapshot is corrupt")
)

// Options contains configuration options for the persistence layer.
type Options struct {
	// Codec encodes the metadata payload.
	Codec codec.Codec

	// Compression compresses artifact payloads.
	Compression Compression
}

// DefaultOptions contains the default configuration options for the persistence layer.
var DefaultOptions = Options{
	Codec:       codec.Default,
	Compression: CompressionZstd,
}

// Layer persists index/metadata pairs to a blobstore.
type Layer struct {
	store blobstore.Store
	opts  Options
}

// New creates a new persistence layer on top of the store.
func New(store blobstore.Store, optFns ...func(o *Options)) *Layer {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	return &Layer{store: store, opts: opts}
}

// Save persists the pair as a new generation and repoints CURRENT to
// it. The previous generation's blobs are deleted best-effort after the
// commit; a failed cleanup never fails the save.
func (l *Layer) Save(ctx context.Context, idx *index.Flat, meta *metadata.Store) error {
	if idx.Count() != meta.Count() {
		return fmt.Errorf("index count %d does not match metadata count %d", idx.Count(), meta.Count())
	}

	prev, err := l.currentManifest(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// A corrupt previous generation does not block writing a new one.
		if !errors.Is(err, ErrCorrupt) {
			return err
		}

		prev = nil
	}

	var id uint64 = 1
	if prev != nil {
		id = prev.ID + 1
	}

	dim, data := idx.Snapshot()

	vectorsBlob, vectorsCRC, err := encodeVectors(dim, idx.Count(), data, l.opts.Compression)
	if err != nil {
		return err
	}

	metadataBlob, metadataCRC, err := encodeMetadata(meta.Records(), l.opts.Codec, l.opts.Compression)
	if err != nil {
		return err
	}

	if err := l.store.Put(ctx, vectorsName(id), vectorsBlob); err != nil {
		return err
	}

	if err := l.store.Put(ctx, metadataName(id), metadataBlob); err != nil {
		return err
	}

	manifest := Manifest{
		Version:      formatVersion,
		ID:           id,
		Dimension:    dim,
		Count:        idx.Count(),
		VectorsPath:  vectorsName(id),
		MetadataPath: metadataName(id),
		VectorsCRC:   vectorsCRC,
		MetadataCRC:  metadataCRC,
		Codec:        l.opts.Codec.Name(),
		Compression:  l.opts.Compression.String(),
		CreatedAt:    time.Now().UTC(),
	}

	manifestBlob, err := json.Marshal(manifest)
	if err != nil {
		return err
	}

	if err := l.store.Put(ctx, manifestName(id), manifestBlob); err != nil {
		return err
	}

	if err := l.store.Put(ctx, CurrentName, []byte(manifestName(id))); err != nil {
		return err
	}

	if prev != nil {
		l.cleanup(ctx, prev)
	}

	return nil
}

// Load restores the pair named by CURRENT. It returns ErrNotFound when
// no snapshot has ever been committed and ErrCorrupt when the snapshot
// exists but fails verification.
func (l *Layer) Load(ctx context.Context) (*index.Flat, *metadata.Store, error) {
	manifest, err := l.currentManifest(ctx)
	if err != nil {
		return nil, nil, err
	}

	vectorsBlob, err := l.store.Get(ctx, manifest.VectorsPath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: manifest references missing artifact %s", ErrCorrupt, manifest.VectorsPath)
		}

		return nil, nil, err
	}

	metadataBlob, err := l.store.Get(ctx, manifest.MetadataPath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: manifest references missing artifact %s", ErrCorrupt, manifest.MetadataPath)
		}

		return nil, nil, err
	}

	dim, count, data, err := decodeVectors(vectorsBlob)
	if err != nil {
		return nil, nil, err
	}

	records, err := decodeMetadata(metadataBlob)
	if err != nil {
		return nil, nil, err
	}

	if err := verifyManifest(manifest, vectorsBlob, metadataBlob, dim, count, len(records)); err != nil {
		return nil, nil, err
	}

	// An empty snapshot has no established dimension to restore.
	if count == 0 {
		idx, err := index.New()
		if err != nil {
			return nil, nil, err
		}

		return idx, metadata.FromRecords(records), nil
	}

	idx, err := index.Restore(dim, data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return idx, metadata.FromRecords(records), nil
}

// currentManifest resolves the CURRENT pointer to its manifest.
func (l *Layer) currentManifest(ctx context.Context) (*Manifest, error) {
	pointer, err := l.store.Get(ctx, CurrentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	name := strings.TrimSpace(string(pointer))

	manifestBlob, err := l.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: CURRENT references missing manifest %s", ErrCorrupt, name)
		}

		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(manifestBlob, &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest decode: %v", ErrCorrupt, err)
	}

	if manifest.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", ErrCorrupt, manifest.Version)
	}

	return &manifest, nil
}

// verifyManifest cross-checks the decoded artifacts against the
// manifest's recorded checksums and shape.
func verifyManifest(m *Manifest, vectorsBlob, metadataBlob []byte, dim, count, records int) error {
	if crc := artifactCRC(vectorsBlob); crc != m.VectorsCRC {
		return &ChecksumMismatchError{Name: m.VectorsPath, Expected: m.VectorsCRC, Actual: crc}
	}

	if crc := artifactCRC(metadataBlob); crc != m.MetadataCRC {
		return &ChecksumMismatchError{Name: m.MetadataPath, Expected: m.MetadataCRC, Actual: crc}
	}

	if dim != m.Dimension {
		return fmt.Errorf("%w: dimension %d does not match manifest %d", ErrCorrupt, dim, m.Dimension)
	}

	if count != m.Count {
		return fmt.Errorf("%w: vector count %d does not match manifest %d", ErrCorrupt, count, m.Count)
	}

	if records != m.Count {
		return fmt.Errorf("%w: metadata count %d does not match vector count %d", ErrCorrupt, records, m.Count)
	}

	return nil
}

// artifactCRC reads the CRC an artifact carries in its trailer. The
// trailer was already verified against the content during decode.
func artifactCRC(raw []byte) uint32 {
	if len(raw) < 4 {
		return 0
	}

	trailer := raw[len(raw)-4:]

	return uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
}

// cleanup deletes a superseded generation's blobs. Errors are ignored;
// stale blobs are unreferenced and harmless.
func (l *Layer) cleanup(ctx context.Context, m *Manifest) {
	_ = l.store.Delete(ctx, m.VectorsPath)
	_ = l.store.Delete(ctx, m.MetadataPath)
	_ = l.store.Delete(ctx, manifestName(m.ID))
}
