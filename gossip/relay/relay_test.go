package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/internal/metrics"
)

// staticDiscovery returns a fixed peer list, pre-ordered as
// "ascending distance" so relay's shuffle is the only source of
// reordering in tests that don't care about order.
type staticDiscovery struct{ peers []gossip.Node }

func (d staticDiscovery) RecentlyAlivePeersAscendingDistance(ctx context.Context) ([]gossip.Node, error) {
	return d.peers, nil
}

// scriptedConnector answers NewBlocks according to a fixed per-peer
// acceptance script and records contact order.
type scriptedConnector struct {
	mu        sync.Mutex
	accept    map[string]bool
	contacted []string
}

func (c *scriptedConnector) Connect(ctx context.Context, peer gossip.Node) (gossip.Service, error) {
	return &scriptedService{c: c, peer: peer}, nil
}

type scriptedService struct {
	c    *scriptedConnector
	peer gossip.Node
}

func (s *scriptedService) NewBlocks(ctx context.Context, req gossip.NewBlocksRequest) (gossip.NewBlocksResponse, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.contacted = append(s.c.contacted, s.peer.ID)
	return gossip.NewBlocksResponse{IsNew: s.c.accept[s.peer.ID]}, nil
}

func (s *scriptedService) GetBlockChunked(ctx context.Context, req gossip.GetBlockChunkedRequest) (gossip.ChunkReader, error) {
	return nil, fmt.Errorf("not used in relay tests")
}

func nodes(n int) []gossip.Node {
	out := make([]gossip.Node, n)
	for i := range out {
		out[i] = common.Node{ID: fmt.Sprintf("P%d", i+1)}
	}
	return out
}

func TestRelaySaturationCap(t *testing.T) {
	// spec §8 scenario 5: relayFactor=3, saturation=50 => maxToTry=6. With
	// 8 peers that all reject, relay must stop at the contacted cap (6)
	// rather than trying every peer. The peer list is shuffled
	// independently per hash (spec §4.1), so the test asserts on counts,
	// not on which specific peer identities were reached.
	peers := nodes(8)
	connector := &scriptedConnector{accept: map[string]bool{}} // every peer rejects
	reg := metrics.NewRegistry()

	e := New(Config{RelayFactor: 3, RelaySaturation: 50, IsSynchronous: true},
		staticDiscovery{peers: peers}, connector, common.Node{ID: "self"}, reg)

	h := e.Relay(context.Background(), []gossip.BlockHash{common.BytesToHash([]byte{1})})
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Relay: %v", err)
	}

	connector.mu.Lock()
	defer connector.mu.Unlock()
	if len(connector.contacted) != 6 {
		t.Fatalf("contacted %d peers, want 6: %v", len(connector.contacted), connector.contacted)
	}
	if reg.RelayAccepted.Count() != 0 {
		t.Fatalf("RelayAccepted = %d, want 0", reg.RelayAccepted.Count())
	}
}

func TestRelayFactorZeroContactsNoPeers(t *testing.T) {
	connector := &scriptedConnector{accept: map[string]bool{}}
	reg := metrics.NewRegistry()
	e := New(Config{RelayFactor: 0, RelaySaturation: 0, IsSynchronous: true},
		staticDiscovery{peers: nodes(5)}, connector, common.Node{ID: "self"}, reg)

	h := e.Relay(context.Background(), []gossip.BlockHash{common.BytesToHash([]byte{2})})
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if len(connector.contacted) != 0 {
		t.Fatalf("expected no peers contacted, got %v", connector.contacted)
	}
}

func TestRelayUnlimitedSaturationStopsAtRelayFactor(t *testing.T) {
	peers := nodes(10)
	accept := make(map[string]bool)
	for _, p := range peers {
		accept[p.ID] = true // every peer accepts
	}
	connector := &scriptedConnector{accept: accept}
	reg := metrics.NewRegistry()
	e := New(Config{RelayFactor: 2, RelaySaturation: 100, IsSynchronous: true},
		staticDiscovery{peers: peers}, connector, common.Node{ID: "self"}, reg)

	h := e.Relay(context.Background(), []gossip.BlockHash{common.BytesToHash([]byte{3})})
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if len(connector.contacted) != 2 {
		t.Fatalf("contacted %d peers, want exactly relayFactor=2: %v", len(connector.contacted), connector.contacted)
	}
	if reg.RelayAccepted.Count() != 2 {
		t.Fatalf("RelayAccepted = %d, want 2", reg.RelayAccepted.Count())
	}
}

func TestIsSynchronousHandleIsAlreadyComplete(t *testing.T) {
	connector := &scriptedConnector{accept: map[string]bool{}}
	reg := metrics.NewRegistry()
	e := New(Config{RelayFactor: 1, RelaySaturation: 0, IsSynchronous: true},
		staticDiscovery{peers: nodes(1)}, connector, common.Node{ID: "self"}, reg)

	h := e.Relay(context.Background(), []gossip.BlockHash{common.BytesToHash([]byte{4})})
	done, _ := h.Ready()
	if !done {
		t.Fatal("expected a synchronous Relay call to return an already-complete handle")
	}
}

func TestRelayErrorsNeverPropagateToCaller(t *testing.T) {
	connector := &scriptedConnector{accept: map[string]bool{}}
	reg := metrics.NewRegistry()
	e := New(Config{RelayFactor: 1, RelaySaturation: 0, IsSynchronous: true},
		errDiscovery{}, connector, common.Node{ID: "self"}, reg)

	h := e.Relay(context.Background(), []gossip.BlockHash{common.BytesToHash([]byte{5})})
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Relay must swallow discovery errors, got %v", err)
	}
}

type errDiscovery struct{}

func (errDiscovery) RecentlyAlivePeersAscendingDistance(ctx context.Context) ([]gossip.Node, error) {
	return nil, fmt.Errorf("discovery unavailable")
}
