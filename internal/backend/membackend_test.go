package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
)

func TestHasBlockFalseUntilStored(t *testing.T) {
	b := New(1<<20, 16)
	hash := common.BytesToHash([]byte{1})

	if has, err := b.HasBlock(context.Background(), hash); err != nil || has {
		t.Fatalf("HasBlock = %v, %v before store", has, err)
	}

	block := &gossip.Block{Summary: gossip.BlockSummary{BlockHash: hash}, Body: []byte("hello")}
	if err := b.StoreBlock(context.Background(), block); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}

	if has, err := b.HasBlock(context.Background(), hash); err != nil || !has {
		t.Fatalf("HasBlock = %v, %v after store", has, err)
	}
}

func TestStoredBlockRoundTrips(t *testing.T) {
	b := New(1<<20, 16)
	hash := common.BytesToHash([]byte{2})
	body := []byte("a reasonably sized block body, repeated. a reasonably sized block body, repeated.")

	block := &gossip.Block{Summary: gossip.BlockSummary{BlockHash: hash}, Body: body}
	if err := b.StoreBlock(context.Background(), block); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}

	got, ok := b.Block(hash)
	if !ok {
		t.Fatal("Block: not found")
	}
	if string(got) != string(body) {
		t.Fatalf("Block = %q, want %q", got, body)
	}
}

func TestSummaryRoundTrips(t *testing.T) {
	b := New(1<<20, 16)
	hash := common.BytesToHash([]byte{3})
	summary := gossip.BlockSummary{BlockHash: hash}

	if _, ok := b.Summary(hash); ok {
		t.Fatal("expected no summary before StoreBlockSummary")
	}
	if err := b.StoreBlockSummary(context.Background(), summary); err != nil {
		t.Fatalf("StoreBlockSummary: %v", err)
	}
	got, ok := b.Summary(hash)
	if !ok || got.BlockHash != hash {
		t.Fatalf("Summary = %+v, %v", got, ok)
	}
}

func TestValidateBlockUsesSuppliedValidator(t *testing.T) {
	wantErr := errors.New("rejected")
	b := New(1<<20, 16, WithValidator(func(*gossip.Block) error { return wantErr }))

	err := b.ValidateBlock(context.Background(), &gossip.Block{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("ValidateBlock = %v, want %v", err, wantErr)
	}
}
