package yaz0_test

import (
	"bytes"
	"strings"
	"testing"

	"rosterforge/internal/yaz0"
)

func TestRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":      {},
		"short":      []byte("abc"),
		"repetitive": []byte(strings.Repeat("bone_table_entry;", 200)),
		"binaryish":  {0, 1, 2, 3, 0, 0, 0, 0, 0xFF, 0xFE, 0, 1, 2, 3, 0, 1, 2, 3},
	}
	for name, plain := range cases {
		t.Run(name, func(t *testing.T) {
			packed := yaz0.Compress(plain)
			if !yaz0.IsCompressed(packed) {
				t.Fatalf("compressed stream missing magic")
			}
			got, err := yaz0.Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(plain))
			}
		})
	}
}

func TestCompressShrinksRepetitiveInput(t *testing.T) {
	plain := bytes.Repeat([]byte("0123456789abcdef"), 512)
	packed := yaz0.Compress(plain)
	if len(packed) >= len(plain) {
		t.Fatalf("expected compression: packed %d >= plain %d", len(packed), len(plain))
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := yaz0.Decompress([]byte("not an archive at all")); err == nil {
		t.Fatal("expected error for missing magic")
	}
	// Valid header, truncated body.
	packed := yaz0.Compress([]byte(strings.Repeat("x", 64)))
	if _, err := yaz0.Decompress(packed[:len(packed)-3]); err == nil {
		t.Fatal("expected error for truncated stream")
	}
}

func TestIsCompressed(t *testing.T) {
	if yaz0.IsCompressed([]byte("SARC")) {
		t.Fatal("plain data misdetected as compressed")
	}
	if !yaz0.IsCompressed(yaz0.Compress([]byte("payload"))) {
		t.Fatal("compressed data not detected")
	}
}
