// Package source loads an input file into memory, unpacking zstd frames.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxSize bounds both the file on disk and the unpacked buffer.
const DefaultMaxSize = 64 << 20

var ErrTooLarge = errors.New("source: input exceeds size limit")

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// compressed reports whether data starts with a zstd frame header.
func compressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Load reads path whole. A zstd-compressed file is returned unpacked.
// maxSize <= 0 means DefaultMaxSize.
func Load(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, path, maxSize)
	}
	return Unpack(data, maxSize)
}

// Unpack returns data unchanged unless it is zstd-compressed.
func Unpack(data []byte, maxSize int64) ([]byte, error) {
	if !compressed(data) {
		return data, nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxSize)), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("source: zstd: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: unpacked size over %d bytes", ErrTooLarge, maxSize)
		}
		return nil, fmt.Errorf("source: zstd: %w", err)
	}
	if int64(len(out)) > maxSize {
		return nil, fmt.Errorf("%w: unpacked size %d", ErrTooLarge, len(out))
	}
	return out, nil
}
