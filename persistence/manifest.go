package persistence

import (
	"fmt"
	"time"
)

// CurrentName is the pointer blob naming the live manifest. It is the
// last blob written during a save, so readers never observe a manifest
// whose artifacts are incomplete.
const CurrentName = "CURRENT"

// Manifest describes one persisted generation: the artifact pair, their
// checksums, and the snapshot shape.
type Manifest struct {
	Version      int       `json:"version"`
	ID           uint64    `json:"id"`
	Dimension    int       `json:"dimension"`
	Count        int       `json:"count"`
	VectorsPath  string    `json:"vectors_path"`
	MetadataPath string    `json:"metadata_path"`
	VectorsCRC   uint32    `json:"vectors_crc"`
	MetadataCRC  uint32    `json:"metadata_crc"`
	Codec        string    `json:"codec"`
	Compression  string    `json:"compression"`
	CreatedAt    time.Time `json:"created_at"`
}

func manifestName(id uint64) string {
	return fmt.Sprintf("MANIFEST-%06d.json", id)
}

func vectorsName(id uint64) string {
	return fmt.Sprintf("vectors-%06d.bin", id)
}

func metadataName(id uint64) string {
	return fmt.Sprintf("metadata-%06d.bin", id)
}
