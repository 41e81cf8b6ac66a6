package snapshot

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Compression identifies the algorithm applied to a snapshot payload.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd (better ratio).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(DefaultMaxPayload))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress returns the payload for raw and the compression actually used.
// Data that does not shrink is stored uncompressed.
func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, CompressionNone, nil
	}
	var out []byte
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, c, errors.Wrap(err, "snapshot: lz4 compress")
		}
		out = buf[:n]
	case CompressionZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(raw, nil)
		putZstdEncoder(enc)
	default:
		return nil, c, errors.Errorf("snapshot: unknown compression %s", c)
	}
	if len(out) == 0 || len(out) >= len(raw) {
		return raw, CompressionNone, nil
	}
	return out, c, nil
}

// lz4MaxRatio is the largest expansion an LZ4 block can encode.
const lz4MaxRatio = 255

// decompress restores rawLen bytes from payload.
func decompress(payload []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(payload) != rawLen {
			return nil, errors.Wrapf(ErrCorrupt, "stored %d bytes, header says %d", len(payload), rawLen)
		}
		return payload, nil
	case CompressionLZ4:
		if rawLen > lz4MaxRatio*len(payload)+lz4MaxRatio {
			return nil, errors.Wrapf(ErrCorrupt, "lz4: %d bytes cannot expand to %d", len(payload), rawLen)
		}
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "lz4: %v", err)
		}
		if n != rawLen {
			return nil, errors.Wrapf(ErrCorrupt, "lz4 restored %d bytes, header says %d", n, rawLen)
		}
		return raw, nil
	case CompressionZstd:
		var fh zstd.Header
		if err := fh.Decode(payload); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "zstd header: %v", err)
		}
		if fh.HasFCS && fh.FrameContentSize != uint64(rawLen) {
			return nil, errors.Wrapf(ErrCorrupt, "zstd frame holds %d bytes, header says %d", fh.FrameContentSize, rawLen)
		}
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		raw, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "zstd: %v", err)
		}
		if len(raw) != rawLen {
			return nil, errors.Wrapf(ErrCorrupt, "zstd restored %d bytes, header says %d", len(raw), rawLen)
		}
		return raw, nil
	default:
		return nil, errors.Wrapf(ErrCorrupt, "unknown compression %s", c)
	}
}
