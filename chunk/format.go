package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/pointgo/geo"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// Magic identifies pointgo chunk blobs (ASCII: "PGC1").
	Magic = 0x50474331
	// FormatVersion is the current blob format version.
	FormatVersion = 1

	// headerSize is the fixed header length preceding the compressed
	// point records.
	headerSize = 4 + 4 + 1 + 7 + 8*4 + 8
)

// Compression selects the point-record codec.
type Compression uint8

const (
	// CompressionNone stores point records raw.
	CompressionNone Compression = iota
	// CompressionZstd is the default codec.
	CompressionZstd
	// CompressionLZ4 trades ratio for speed on fast links.
	CompressionLZ4
)

var (
	ErrInvalidMagic       = errors.New("chunk: invalid magic number")
	ErrInvalidVersion     = errors.New("chunk: unsupported format version")
	ErrInvalidCompression = errors.New("chunk: unknown compression")
	ErrIdentityMismatch   = errors.New("chunk: blob identity mismatch")
	ErrCountMismatch      = errors.New("chunk: point count mismatch")
)

// Shared codecs; EncodeAll/DecodeAll are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encode serializes the chunk identity and voxels into a blob.
func encode(d geo.Dxyz, voxels []geo.Voxel, comp Compression) ([]byte, error) {
	var body bytes.Buffer
	for _, v := range voxels {
		var rec [28]byte
		binary.LittleEndian.PutUint64(rec[0:], math.Float64bits(v.Point.X))
		binary.LittleEndian.PutUint64(rec[8:], math.Float64bits(v.Point.Y))
		binary.LittleEndian.PutUint64(rec[16:], math.Float64bits(v.Point.Z))
		binary.LittleEndian.PutUint32(rec[24:], uint32(len(v.Data)))
		body.Write(rec[:])
		body.Write(v.Data)
	}

	packed, err := compress(body.Bytes(), comp)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], Magic)
	binary.LittleEndian.PutUint32(out[4:], FormatVersion)
	out[8] = byte(comp)
	binary.LittleEndian.PutUint64(out[16:], d.Depth)
	binary.LittleEndian.PutUint64(out[24:], d.X)
	binary.LittleEndian.PutUint64(out[32:], d.Y)
	binary.LittleEndian.PutUint64(out[40:], d.Z)
	binary.LittleEndian.PutUint64(out[48:], uint64(len(voxels)))
	return append(out, packed...), nil
}

// decode parses a blob, verifying it describes chunk d.
func decode(data []byte, d geo.Dxyz) ([]geo.Voxel, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("chunk: blob truncated: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:]) != Magic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(data[4:]) != FormatVersion {
		return nil, ErrInvalidVersion
	}
	comp := Compression(data[8])

	got := geo.Dxyz{
		Depth: binary.LittleEndian.Uint64(data[16:]),
		Xyz: geo.Xyz{
			X: binary.LittleEndian.Uint64(data[24:]),
			Y: binary.LittleEndian.Uint64(data[32:]),
			Z: binary.LittleEndian.Uint64(data[40:]),
		},
	}
	if got != d {
		return nil, fmt.Errorf("%w: blob %s, want %s", ErrIdentityMismatch, got, d)
	}
	np := binary.LittleEndian.Uint64(data[48:])

	body, err := decompress(data[headerSize:], comp)
	if err != nil {
		return nil, err
	}

	voxels := make([]geo.Voxel, 0, np)
	for len(body) > 0 {
		if len(body) < 28 {
			return nil, fmt.Errorf("chunk: record truncated: %d bytes", len(body))
		}
		v := geo.Voxel{
			Point: geo.Point{
				X: math.Float64frombits(binary.LittleEndian.Uint64(body[0:])),
				Y: math.Float64frombits(binary.LittleEndian.Uint64(body[8:])),
				Z: math.Float64frombits(binary.LittleEndian.Uint64(body[16:])),
			},
		}
		n := binary.LittleEndian.Uint32(body[24:])
		body = body[28:]
		if uint32(len(body)) < n {
			return nil, fmt.Errorf("chunk: payload truncated: want %d, have %d", n, len(body))
		}
		if n > 0 {
			v.Data = append([]byte(nil), body[:n]...)
			body = body[n:]
		}
		voxels = append(voxels, v)
	}

	if uint64(len(voxels)) != np {
		return nil, fmt.Errorf("%w: header %d, records %d", ErrCountMismatch, np, len(voxels))
	}
	return voxels, nil
}

func compress(src []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return src, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(src, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(src); err != nil {
			return nil, fmt.Errorf("chunk: lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("chunk: lz4 flush: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, comp)
	}
}

func decompress(src []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return src, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(src, nil)
		if err != nil {
			return nil, fmt.Errorf("chunk: zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
		if err != nil {
			return nil, fmt.Errorf("chunk: lz4 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, comp)
	}
}
