package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ragkit/ragkit/codec"
	"github.com/ragkit/ragkit/metadata"
)

// Artifact layout, little-endian throughout:
//
//	magic [4]byte | version u16 | compression u8 | type-specific header |
//	payloadLen u64 | payload | crc32 u32
//
// The trailing CRC covers every preceding byte. The payload is the
// type-specific body, compressed per the header.
const (
	vectorsMagic  = "RKVX"
	metadataMagic = "RKMD"

	formatVersion = 1
)

// Compression selects the payload compression of persisted artifacts.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// CompressionByName returns a compression by its stable name.
func CompressionByName(name string) (Compression, bool) {
	switch name {
	case "none", "":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return CompressionNone, false
	}
}

func compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()

		return enc.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer

		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}

		if err := w.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: compression %s", ErrCorrupt, c)
	}
}

func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd payload: %v", ErrCorrupt, err)
		}

		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("%w: lz4 payload: %v", ErrCorrupt, err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(c))
	}
}

// encodeVectors serializes a row-major vector buffer.
func encodeVectors(dim, count int, data []float32, comp Compression) ([]byte, uint32, error) {
	payload := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(f))
	}

	compressed, err := compress(comp, payload)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer

	buf.WriteString(vectorsMagic)
	writeU16(&buf, formatVersion)
	buf.WriteByte(byte(comp))
	writeU32(&buf, uint32(dim))
	writeU64(&buf, uint64(count))
	writeU64(&buf, uint64(len(compressed)))
	buf.Write(compressed)

	sum := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(&buf, sum)

	return buf.Bytes(), sum, nil
}

// decodeVectors parses a vectors artifact, verifying its checksum.
func decodeVectors(raw []byte) (dim, count int, data []float32, err error) {
	r, comp, err := openArtifact(raw, vectorsMagic)
	if err != nil {
		return 0, 0, nil, err
	}

	if r.Len() < 4+8+8 {
		return 0, 0, nil, fmt.Errorf("%w: truncated vectors header", ErrCorrupt)
	}

	dim = int(readU32(r))
	count = int(readU64(r))
	payloadLen := readU64(r)

	if uint64(r.Len()) != payloadLen {
		return 0, 0, nil, fmt.Errorf("%w: vectors payload length mismatch", ErrCorrupt)
	}

	payload, err := decompress(comp, r.Bytes())
	if err != nil {
		return 0, 0, nil, err
	}

	if len(payload) != dim*count*4 {
		return 0, 0, nil, fmt.Errorf("%w: vectors payload size %d does not match dim=%d count=%d", ErrCorrupt, len(payload), dim, count)
	}

	data = make([]float32, dim*count)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	return dim, count, data, nil
}

// encodeMetadata serializes the record slice through the codec. The
// artifact names the codec so readers do not depend on configuration.
func encodeMetadata(records []metadata.Record, c codec.Codec, comp Compression) ([]byte, uint32, error) {
	payload, err := c.Marshal(records)
	if err != nil {
		return nil, 0, err
	}

	compressed, err := compress(comp, payload)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer

	buf.WriteString(metadataMagic)
	writeU16(&buf, formatVersion)
	buf.WriteByte(byte(comp))

	name := c.Name()
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)

	writeU64(&buf, uint64(len(compressed)))
	buf.Write(compressed)

	sum := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(&buf, sum)

	return buf.Bytes(), sum, nil
}

// decodeMetadata parses a metadata artifact, verifying its checksum.
func decodeMetadata(raw []byte) ([]metadata.Record, error) {
	r, comp, err := openArtifact(raw, metadataMagic)
	if err != nil {
		return nil, err
	}

	if r.Len() < 1 {
		return nil, fmt.Errorf("%w: truncated metadata header", ErrCorrupt)
	}

	nameLen := int(readU8(r))
	if r.Len() < nameLen+8 {
		return nil, fmt.Errorf("%w: truncated metadata header", ErrCorrupt)
	}

	name := string(r.Next(nameLen))

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, name)
	}

	payloadLen := readU64(r)
	if uint64(r.Len()) != payloadLen {
		return nil, fmt.Errorf("%w: metadata payload length mismatch", ErrCorrupt)
	}

	payload, err := decompress(comp, r.Bytes())
	if err != nil {
		return nil, err
	}

	var records []metadata.Record
	if err := c.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("%w: metadata decode: %v", ErrCorrupt, err)
	}

	return records, nil
}

// openArtifact verifies magic, version, and trailing CRC, returning a
// reader positioned after the common header.
func openArtifact(raw []byte, magic string) (*bytes.Buffer, Compression, error) {
	headerLen := len(magic) + 2 + 1

	if len(raw) < headerLen+4 {
		return nil, 0, fmt.Errorf("%w: artifact too short", ErrCorrupt)
	}

	body, trailer := raw[:len(raw)-4], raw[len(raw)-4:]

	if sum := crc32.ChecksumIEEE(body); sum != binary.LittleEndian.Uint32(trailer) {
		return nil, 0, &ChecksumMismatchError{
			Expected: binary.LittleEndian.Uint32(trailer),
			Actual:   sum,
		}
	}

	if string(body[:len(magic)]) != magic {
		return nil, 0, fmt.Errorf("%w: bad magic %q", ErrCorrupt, body[:len(magic)])
	}

	if v := binary.LittleEndian.Uint16(body[len(magic):]); v != formatVersion {
		return nil, 0, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, v)
	}

	comp := Compression(body[len(magic)+2])

	return bytes.NewBuffer(body[headerLen:]), comp, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU8(r *bytes.Buffer) uint8 {
	b, _ := r.ReadByte()
	return b
}

func readU32(r *bytes.Buffer) uint32 {
	return binary.LittleEndian.Uint32(r.Next(4))
}

func readU64(r *bytes.Buffer) uint64 {
	return binary.LittleEndian.Uint64(r.Next(8))
}
