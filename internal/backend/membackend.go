// Package backend ships MemBackend, a reference gossip.Backend for tests
// and the cmd/ demo (spec §6 scopes Backend as an interface; the
// implementation behind it is explicitly out of the core's concern).
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru"

	"github.com/casperlabs/casper-node/gossip"
)

// MemBackend stores block bodies snappy-compressed in a fastcache byte
// store and summaries in a bounded LRU ring. HasBlock answers from the
// block store only, so a summary ageing out of the ring does not change
// it; a body evicted from the fastcache store does.
type MemBackend struct {
	mu        sync.Mutex
	blocks    *fastcache.Cache
	summaries *lru.Cache
	validate  func(*gossip.Block) error
}

// Option configures a MemBackend at construction time.
type Option func(*MemBackend)

// WithValidator overrides the default accept-all ValidateBlock.
func WithValidator(v func(*gossip.Block) error) Option {
	return func(b *MemBackend) { b.validate = v }
}

// New constructs a MemBackend with blockCacheBytes of fastcache storage
// and an LRU ring holding summaryRingSize recently-stored summaries.
func New(blockCacheBytes, summaryRingSize int, opts ...Option) *MemBackend {
	summaries, err := lru.New(summaryRingSize)
	if err != nil {
		panic(fmt.Sprintf("backend: invalid summary ring size %d: %v", summaryRingSize, err))
	}
	b := &MemBackend{
		blocks:    fastcache.New(blockCacheBytes),
		summaries: summaries,
		validate:  func(*gossip.Block) error { return nil },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemBackend) HasBlock(ctx context.Context, hash gossip.BlockHash) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blocks.Has(hash.Bytes()), nil
}

func (b *MemBackend) ValidateBlock(ctx context.Context, block *gossip.Block) error {
	return b.validate(block)
}

func (b *MemBackend) StoreBlock(ctx context.Context, block *gossip.Block) error {
	compressed := snappy.Encode(nil, block.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks.Set(block.Summary.BlockHash.Bytes(), compressed)
	return nil
}

func (b *MemBackend) StoreBlockSummary(ctx context.Context, summary gossip.BlockSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summaries.Add(summary.BlockHash, summary)
	return nil
}

// Block returns a previously stored block's decompressed body, for tests
// and the cmd/ demo to read back what was downloaded.
func (b *MemBackend) Block(hash gossip.BlockHash) ([]byte, bool) {
	key := hash.Bytes()
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.blocks.Has(key) {
		return nil, false
	}
	compressed := b.blocks.Get(nil, key)
	body, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false
	}
	return body, true
}

// Summary returns a recently-stored summary, if it hasn't aged out of
// the LRU ring.
func (b *MemBackend) Summary(hash gossip.BlockHash) (gossip.BlockSummary, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.summaries.Get(hash)
	if !ok {
		return gossip.BlockSummary{}, false
	}
	return v.(gossip.BlockSummary), true
}
