// Package common holds the small value types shared by every gossip
// component: block hashes and peer identities.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a block hash in bytes.
const HashLength = 32

// Hash is an opaque, total-ordered block identifier.
type Hash [HashLength]byte

// BytesToHash right-aligns b into a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a hex string (with or without 0x prefix) into a Hash.
func HexToHash(s string) Hash {
	s = stripHexPrefix(s)
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Bytes returns a copy of the hash's bytes.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// Less implements the lexicographic total order required by the spec.
func (h Hash) Less(other Hash) bool { return bytes.Compare(h[:], other[:]) < 0 }

// Hex returns the 0x-prefixed hex encoding of h.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// Format implements fmt.Formatter so %x/%v behave sensibly in log lines.
func (h Hash) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "%"+string(c), h[:])
}

// HashSlice is a convenience type used when ordering matters (e.g.
// reporting MissingDependencies in a stable order).
type HashSlice []Hash

func (s HashSlice) Len() int           { return len(s) }
func (s HashSlice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s HashSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
