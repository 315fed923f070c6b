// Package chunk folds a lazy stream of wire Chunk frames into a
// validated, length-policed byte buffer (spec §4.3).
package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/gossip/compression"
)

// Assemble folds reader's chunks into the decompressed block payload,
// rejecting and aborting on the first wire-format violation (spec §4.3
// fold rules 1-5). source identifies the peer the stream came from, for
// error reporting.
func Assemble(ctx context.Context, reader gossip.ChunkReader, source common.Node) ([]byte, error) {
	var (
		header       *gossip.ChunkHeader
		bytesReceived uint32
		ordered      [][]byte
	)

	for {
		c, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &gossip.TransportError{Source: source, Err: err}
		}

		switch {
		case c.Header != nil:
			if header == nil && len(ordered) == 0 {
				header = c.Header
				if !compression.Algorithm(header.CompressionAlgorithm).Valid() {
					return nil, &gossip.InvalidChunksError{
						Reason: fmt.Sprintf("unexpected algorithm: %s", header.CompressionAlgorithm),
						Source: source,
					}
				}
				continue
			}
			return nil, &gossip.InvalidChunksError{Reason: "second header", Source: source}

		case c.Data != nil:
			if header == nil {
				return nil, &gossip.InvalidChunksError{Reason: "did not start with a header", Source: source}
			}
			if len(c.Data.Bytes) == 0 {
				return nil, &gossip.InvalidChunksError{Reason: "empty data frame", Source: source}
			}
			bytesReceived += uint32(len(c.Data.Bytes))
			if bytesReceived > header.ContentLength {
				return nil, &gossip.InvalidChunksError{Reason: "exceeding promised content length", Source: source}
			}
			ordered = append(ordered, c.Data.Bytes)
		}
	}

	if header == nil {
		return nil, &gossip.InvalidChunksError{Reason: "did not receive a header", Source: source}
	}
	if len(ordered) == 0 && header.ContentLength != 0 {
		return nil, &gossip.InvalidChunksError{Reason: "no data", Source: source}
	}

	payload := make([]byte, 0, bytesReceived)
	for _, b := range ordered {
		payload = append(payload, b...)
	}

	decompressed, err := compression.Decompress(
		compression.Algorithm(header.CompressionAlgorithm),
		payload,
		int(header.OriginalContentLength),
	)
	if err != nil {
		return nil, &gossip.InvalidChunksError{Reason: err.Error(), Source: source}
	}
	return decompressed, nil
}
