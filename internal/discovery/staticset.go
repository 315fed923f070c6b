// Package discovery ships StaticSet, a reference gossip.PeerDiscovery
// for tests and the cmd/ demo: a fixed peer membership set with a
// decaying liveness window (spec §4.1 step 1).
package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
)

// StaticSet tracks a peer membership set plus the last time each member
// was observed alive. RecentlyAlivePeersAscendingDistance returns only
// peers seen within window, ascending by Node.Distance.
type StaticSet struct {
	mu       sync.Mutex
	peers    mapset.Set[gossip.Node]
	lastSeen map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

// New constructs an empty StaticSet with the given liveness window.
func New(window time.Duration) *StaticSet {
	return &StaticSet{
		peers:    mapset.NewThreadUnsafeSet[gossip.Node](),
		lastSeen: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// Observe records peer as alive as of now, adding it to the membership
// set if it wasn't already known.
func (s *StaticSet) Observe(peer gossip.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers.Add(peer)
	s.lastSeen[peer.ID] = s.now()
}

// Remove evicts a peer entirely, e.g. after a persistent connection
// failure.
func (s *StaticSet) Remove(peer gossip.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers.Remove(peer)
	delete(s.lastSeen, peer.ID)
}

func (s *StaticSet) RecentlyAlivePeersAscendingDistance(ctx context.Context) ([]gossip.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	live := make([]gossip.Node, 0, s.peers.Cardinality())
	for _, p := range s.peers.ToSlice() {
		if seen, ok := s.lastSeen[p.ID]; ok && seen.After(cutoff) {
			live = append(live, p)
		}
	}
	sort.Sort(common.NodeSlice(live))
	return live, nil
}
