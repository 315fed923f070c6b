package gossip

import "context"

// Backend is the block validation and storage collaborator the Download
// Manager depends on (spec §6). It is consumed, not implemented, by this
// core; internal/backend ships a reference implementation for tests and
// the cmd/ demo.
type Backend interface {
	// HasBlock reports whether hash is already fully stored. The Download
	// Manager also consults it when resolving a scheduled block's
	// dependencies.
	HasBlock(ctx context.Context, hash BlockHash) (bool, error)

	// ValidateBlock runs consensus validation on block. Returning an
	// error fails the download attempt per the worker's retry policy.
	ValidateBlock(ctx context.Context, block *Block) error

	// StoreBlock persists the full block body. Must complete before
	// StoreBlockSummary is called for the same block (spec §4.2 step 3).
	StoreBlock(ctx context.Context, block *Block) error

	// StoreBlockSummary persists the block's summary. The Download
	// Manager calls it only after StoreBlock succeeded for the same block.
	StoreBlockSummary(ctx context.Context, summary BlockSummary) error
}
