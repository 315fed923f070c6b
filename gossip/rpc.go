package gossip

import "context"

// ChunkHeader is the first frame of a chunked block transfer, declaring
// the wire compression and the two size fields the Chunk assembler
// polices (spec §4.3).
type ChunkHeader struct {
	CompressionAlgorithm  string // "" or "lz4"
	ContentLength         uint32 // sum of all following Data.Bytes lengths
	OriginalContentLength uint32 // size after decompression
}

// ChunkData is a data frame of a chunked block transfer.
type ChunkData struct {
	Bytes []byte
}

// Chunk is one frame of a GetBlockChunked response stream: exactly one of
// Header or Data is set, Header only ever appearing first.
type Chunk struct {
	Header *ChunkHeader
	Data   *ChunkData
}

// ChunkReader is a lazy stream of Chunk frames, modeled as a pull
// iterator so the assembler can fold it without buffering the whole
// transfer up front.
type ChunkReader interface {
	// Next returns the next chunk, or io.EOF (wrapped) when the stream is
	// exhausted.
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

// NewBlocksRequest announces hashes to a peer on behalf of sender.
type NewBlocksRequest struct {
	Sender      Node
	BlockHashes []BlockHash
}

// NewBlocksResponse reports whether the announced block was new to the
// responding peer.
type NewBlocksResponse struct {
	IsNew bool
}

// GetBlockChunkedRequest requests a chunked transfer of a single block.
type GetBlockChunkedRequest struct {
	BlockHash                   BlockHash
	AcceptedCompressionAlgorithms []string
}

// Service is the gossip RPC surface a connected peer exposes (spec §6).
type Service interface {
	NewBlocks(ctx context.Context, req NewBlocksRequest) (NewBlocksResponse, error)
	GetBlockChunked(ctx context.Context, req GetBlockChunkedRequest) (ChunkReader, error)
}

// Connector dials a peer's gossip Service. The real wire transport is an
// external collaborator (spec §1); internal/fakenet provides an
// in-process stand-in for tests and the cmd/ demo.
type Connector interface {
	Connect(ctx context.Context, peer Node) (Service, error)
}
