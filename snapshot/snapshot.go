// Package snapshot persists the logical content of the genmap containers.
//
// A snapshot holds the JSON form of a value (for GenMap and MultiMap, the list
// of entries without handles or key index) behind a small header:
//
//	magic "GMSN" | version u8 | compression u8 | rawLen u32 LE | payloadLen u32 LE | payload
//
// The payload may be LZ4 or zstd compressed. Decoding goes through the
// value's UnmarshalJSON, so containers reject snapshots that reuse a key.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// Version is the format version written by Write.
	Version = 1
	// DefaultMaxPayload is the largest payload Read accepts by default.
	DefaultMaxPayload = 1 << 30

	headerSize = 14
	// payloadChunk bounds the buffer preallocated before payload bytes arrive.
	payloadChunk = 64 << 10
)

var magic = [4]byte{'G', 'M', 'S', 'N'}

var (
	// ErrBadMagic is returned when the input does not start with a snapshot header.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrUnsupportedVersion is returned for headers written by an unknown format version.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrCorrupt is returned when the header and payload disagree.
	ErrCorrupt = errors.New("snapshot: corrupt payload")
	// ErrTooLarge is returned when a payload exceeds the configured limit.
	ErrTooLarge = errors.New("snapshot: payload too large")
)

// Header describes a snapshot payload.
type Header struct {
	Version     uint8
	Compression Compression
	RawLen      uint32
	PayloadLen  uint32
}

func (h Header) encode() [headerSize]byte {
	var b [headerSize]byte
	copy(b[:4], magic[:])
	b[4] = h.Version
	b[5] = uint8(h.Compression)
	binary.LittleEndian.PutUint32(b[6:], h.RawLen)
	binary.LittleEndian.PutUint32(b[10:], h.PayloadLen)
	return b
}

func decodeHeader(b []byte) (Header, error) {
	if !bytes.Equal(b[:4], magic[:]) {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:     b[4],
		Compression: Compression(b[5]),
		RawLen:      binary.LittleEndian.Uint32(b[6:]),
		PayloadLen:  binary.LittleEndian.Uint32(b[10:]),
	}
	if h.Version != Version {
		return h, errors.Wrapf(ErrUnsupportedVersion, "got %d", h.Version)
	}
	return h, nil
}

// Write encodes v as JSON and writes it to w as a snapshot.
func Write(w io.Writer, v any, opts ...Option) error {
	o := applyOptions(opts)
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "snapshot: encode")
	}
	if uint64(len(raw)) > math.MaxUint32 {
		return errors.Wrapf(ErrTooLarge, "%d bytes", len(raw))
	}
	payload, used, err := compress(raw, o.compression)
	if err != nil {
		return err
	}
	h := Header{
		Version:     Version,
		Compression: used,
		RawLen:      uint32(len(raw)),
		PayloadLen:  uint32(len(payload)),
	}
	hb := h.encode()
	if _, err := w.Write(hb[:]); err != nil {
		return errors.Wrap(err, "snapshot: write header")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "snapshot: write payload")
	}
	o.logger.Debug("snapshot written",
		"compression", used.String(),
		"raw_bytes", len(raw),
		"payload_bytes", len(payload))
	return nil
}

// Read reads a snapshot from r and decodes it into v, which must be a
// pointer accepted by json.Unmarshal.
func Read(r io.Reader, v any, opts ...Option) error {
	o := applyOptions(opts)
	var hb [headerSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return errors.Wrap(ErrBadMagic, "short header")
		}
		return errors.Wrap(err, "snapshot: read header")
	}
	h, err := decodeHeader(hb[:])
	if err != nil {
		return err
	}
	if int64(h.RawLen) > int64(o.maxPayload) || int64(h.PayloadLen) > int64(o.maxPayload) {
		return errors.Wrapf(ErrTooLarge, "raw %d payload %d limit %d", h.RawLen, h.PayloadLen, o.maxPayload)
	}
	payload, err := readPayload(r, h.PayloadLen)
	if err != nil {
		return err
	}
	raw, err := decompress(payload, h.Compression, int(h.RawLen))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "snapshot: decode")
	}
	o.logger.Debug("snapshot read",
		"compression", h.Compression.String(),
		"raw_bytes", h.RawLen,
		"payload_bytes", h.PayloadLen)
	return nil
}

// readPayload reads exactly n bytes from r. The buffer grows with the data
// that actually arrives, so a lying header cannot force a large allocation.
func readPayload(r io.Reader, n uint32) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(n, payloadChunk)))
	got, err := io.Copy(&buf, io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "read payload: %v", err)
	}
	if got != int64(n) {
		return nil, errors.Wrapf(ErrCorrupt, "read payload: got %d of %d bytes", got, n)
	}
	return buf.Bytes(), nil
}

// SaveFile writes a snapshot of v to path. The file is written under a
// temporary name in the same directory and renamed into place.
func SaveFile(path string, v any, opts ...Option) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "snapshot: create temp file")
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()
	if err = Write(f, v, opts...); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return errors.Wrap(err, "snapshot: sync")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "snapshot: close")
	}
	if err = os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "snapshot: rename")
	}
	return nil
}

// LoadFile reads the snapshot at path into v.
func LoadFile(path string, v any, opts ...Option) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "snapshot: open")
	}
	defer f.Close()
	return Read(f, v, opts...)
}
