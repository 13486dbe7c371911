package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SCOT-94.DAT")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sample() []byte {
	b := bytes.Repeat([]byte("Aberdeen\x00\x00\x00\x00\x00\x00\x00\x00"), 64)
	return append(b, 0x01, 0x02, 0x03)
}

func TestLoadRaw(t *testing.T) {
	want := sample()
	got, err := Load(writeFile(t, want), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("raw file changed on load")
	}
}

func TestLoadZstd(t *testing.T) {
	want := sample()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	packed := enc.EncodeAll(want, nil)
	enc.Close()
	if !compressed(packed) {
		t.Fatal("encoder output lacks zstd magic")
	}

	got, err := Load(writeFile(t, packed), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("unpacked %d bytes, want %d", len(got), len(want))
	}
}

func TestLoadTooLarge(t *testing.T) {
	path := writeFile(t, make([]byte, 100))
	if _, err := Load(path, 99); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	if _, err := Load(path, 100); err != nil {
		t.Errorf("exact-size file rejected: %v", err)
	}
}

func TestUnpackTooLarge(t *testing.T) {
	enc, _ := zstd.NewWriter(nil)
	packed := enc.EncodeAll(make([]byte, 4096), nil)
	enc.Close()
	if _, err := Unpack(packed, 1024); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope"), 0); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
}
