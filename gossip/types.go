// Package gossip defines the wire-level and storage-level contracts
// consumed by the Download Manager and Relay Engine: Backend, peer
// discovery, the gossip RPC surface, and the chunk wire format (spec §6).
package gossip

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/casperlabs/casper-node/common"
)

// BlockHash is the block identifier used throughout the gossip core.
type BlockHash = common.Hash

// BlockSummary is the immutable descriptor a block must present before it
// can be scheduled for download: its own hash and the hashes it depends
// on.
type BlockSummary struct {
	BlockHash            BlockHash
	ParentHashes         mapset.Set[BlockHash]
	JustificationHashes  mapset.Set[BlockHash]
}

// Dependencies returns parentHashes ∪ justificationHashes, the set that
// must be locally present before the block can be validated (spec §3).
func (s BlockSummary) Dependencies() mapset.Set[BlockHash] {
	deps := mapset.NewThreadUnsafeSet[BlockHash]()
	if s.ParentHashes != nil {
		deps = deps.Union(s.ParentHashes)
	}
	if s.JustificationHashes != nil {
		deps = deps.Union(s.JustificationHashes)
	}
	return deps
}

// Block is the full block payload, produced only after a successful
// fetch, decompress, and parse.
type Block struct {
	Summary BlockSummary
	Body    []byte
}

// Node is a peer identity, re-exported for convenience at the gossip API
// boundary.
type Node = common.Node
