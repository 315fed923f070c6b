package compression

import (
	"bytes"
	"testing"

	"github.com/pierrec/lz4"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("lz4 compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}
	return buf.Bytes()
}

func TestDecompressNoneRequiresExactLength(t *testing.T) {
	payload := []byte("hello block")
	out, err := Decompress(None, payload, len(payload))
	if err != nil {
		t.Fatalf("Decompress(None): %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("got %q, want %q", out, payload)
	}

	if _, err := Decompress(None, payload, len(payload)+1); err == nil {
		t.Fatal("expected error for mismatched uncompressed length")
	}
}

func TestDecompressLZ4RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("block payload data "), 100)
	compressed := compress(t, payload)

	out, err := Decompress(LZ4, compressed, len(payload))
	if err != nil {
		t.Fatalf("Decompress(LZ4): %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(payload))
	}
}

func TestDecompressLZ4WrongDeclaredSizeFails(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)
	compressed := compress(t, payload)

	if _, err := Decompress(LZ4, compressed, len(payload)-1); err == nil {
		t.Fatal("expected error when declared size is shorter than actual")
	}
	if _, err := Decompress(LZ4, compressed, len(payload)+1); err == nil {
		t.Fatal("expected error when declared size is longer than actual")
	}
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	if Algorithm("zstd").Valid() {
		t.Fatal("zstd must not be a valid wire algorithm")
	}
	if _, err := Decompress("zstd", nil, 0); err == nil {
		t.Fatal("expected error for unexpected algorithm")
	}
}
