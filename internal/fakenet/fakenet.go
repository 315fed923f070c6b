// Package fakenet is an in-process stand-in for the real gossip wire
// transport (spec §1 scopes the transport as an external collaborator):
// it wires gossip.Connector/gossip.Service calls directly between
// registered Peers without a socket, for tests and the cmd/ demo.
package fakenet

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/casperlabs/casper-node/gossip"
)

// Network is the shared in-process medium: every Peer registers here,
// keyed by its Node.ID, and a Connector dials into whichever Peer a
// caller names.
type Network struct {
	mu    sync.Mutex
	peers map[string]*Peer
}

// NewNetwork constructs an empty Network.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Peer)}
}

// Register makes peer reachable under node.ID.
func (n *Network) Register(node gossip.Node, peer *Peer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[node.ID] = peer
}

// Connector returns a gossip.Connector that dials into this Network on
// behalf of self.
func (n *Network) Connector(self gossip.Node) gossip.Connector {
	return &connector{net: n, self: self}
}

type connector struct {
	net  *Network
	self gossip.Node
}

func (c *connector) Connect(ctx context.Context, peer gossip.Node) (gossip.Service, error) {
	c.net.mu.Lock()
	target, ok := c.net.peers[peer.ID]
	c.net.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fakenet: no such peer: %s", peer.ID)
	}
	return &service{peer: target, from: c.self}, nil
}

// Peer is one node's transport-facing handler: it answers GetBlockChunked
// from a local, explicitly published block store, and funnels NewBlocks
// announcements into a caller-supplied callback.
type Peer struct {
	mu          sync.Mutex
	blocks      map[gossip.BlockHash][]byte
	onNewBlocks func(from gossip.Node, hashes []gossip.BlockHash) bool
}

// NewPeer constructs a Peer. onNewBlocks may be nil, in which case every
// NewBlocks announcement this peer receives is treated as already known
// (IsNew: false).
func NewPeer(onNewBlocks func(from gossip.Node, hashes []gossip.BlockHash) bool) *Peer {
	return &Peer{blocks: make(map[gossip.BlockHash][]byte), onNewBlocks: onNewBlocks}
}

// Publish makes body fetchable as hash by any peer that connects to this
// one.
func (p *Peer) Publish(hash gossip.BlockHash, body []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocks[hash] = body
}

type service struct {
	peer *Peer
	from gossip.Node
}

func (s *service) NewBlocks(ctx context.Context, req gossip.NewBlocksRequest) (gossip.NewBlocksResponse, error) {
	if s.peer.onNewBlocks == nil {
		return gossip.NewBlocksResponse{IsNew: false}, nil
	}
	return gossip.NewBlocksResponse{IsNew: s.peer.onNewBlocks(req.Sender, req.BlockHashes)}, nil
}

func (s *service) GetBlockChunked(ctx context.Context, req gossip.GetBlockChunkedRequest) (gossip.ChunkReader, error) {
	s.peer.mu.Lock()
	body, ok := s.peer.blocks[req.BlockHash]
	s.peer.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fakenet: peer does not have block %s", req.BlockHash)
	}
	return newChunkReader(body), nil
}

// newChunkReader folds body into an uncompressed, two-frame chunk
// stream. fakenet never exercises the lz4 path — gossip/compression
// already covers that directly.
func newChunkReader(body []byte) gossip.ChunkReader {
	return &chunkReader{chunks: []gossip.Chunk{
		{Header: &gossip.ChunkHeader{ContentLength: uint32(len(body)), OriginalContentLength: uint32(len(body))}},
		{Data: &gossip.ChunkData{Bytes: body}},
	}}
}

type chunkReader struct {
	chunks []gossip.Chunk
	pos    int
}

func (r *chunkReader) Next(ctx context.Context) (gossip.Chunk, error) {
	if r.pos >= len(r.chunks) {
		return gossip.Chunk{}, io.EOF
	}
	c := r.chunks[r.pos]
	r.pos++
	return c, nil
}

func (r *chunkReader) Close() error { return nil }
