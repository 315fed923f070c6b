// Package compression implements the decompression half of the chunked
// block wire contract (spec §4.3): given a declared original size,
// decompress a byte buffer or fail.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
)

// Algorithm identifies a wire compression token. Only the empty string
// (no compression) and "lz4" are valid per the wire contract.
type Algorithm string

const (
	None Algorithm = ""
	LZ4  Algorithm = "lz4"
)

// Valid reports whether a is one of the wire contract's recognized
// tokens (spec §4.3 fold rule 3).
func (a Algorithm) Valid() bool {
	return a == None || a == LZ4
}

// Decompress decompresses data, which was compressed with algorithm, to
// exactly originalLen bytes. A shorter or longer result is an error, as
// required by spec §4.3's post-processing rule.
func Decompress(algorithm Algorithm, data []byte, originalLen int) ([]byte, error) {
	switch algorithm {
	case None:
		if len(data) != originalLen {
			return nil, fmt.Errorf("compression: uncompressed payload is %d bytes, expected %d", len(data), originalLen)
		}
		return data, nil
	case LZ4:
		return decompressLZ4(data, originalLen)
	default:
		return nil, fmt.Errorf("compression: unexpected algorithm: %s", algorithm)
	}
}

func decompressLZ4(data []byte, originalLen int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out := make([]byte, originalLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("compression: lz4 decompress: %w", err)
	}
	if n != originalLen {
		return nil, fmt.Errorf("compression: lz4 produced %d bytes, expected %d", n, originalLen)
	}
	// Confirm there is no trailing data beyond the declared size.
	var extra [1]byte
	if m, err := r.Read(extra[:]); m > 0 || (err != nil && err != io.EOF) {
		return nil, fmt.Errorf("compression: lz4 produced more than the declared %d bytes", originalLen)
	}
	return out, nil
}
