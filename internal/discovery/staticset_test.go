package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
)

func TestObservedPeerIsImmediatelyLive(t *testing.T) {
	s := New(time.Minute)
	peer := common.Node{ID: "p1"}
	s.Observe(peer)

	live, err := s.RecentlyAlivePeersAscendingDistance(context.Background())
	if err != nil {
		t.Fatalf("RecentlyAlivePeersAscendingDistance: %v", err)
	}
	if len(live) != 1 || live[0].ID != "p1" {
		t.Fatalf("live = %v, want [p1]", live)
	}
}

func TestPeerOutsideWindowIsExcluded(t *testing.T) {
	s := New(time.Minute)
	base := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return base }

	s.Observe(common.Node{ID: "stale"})

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	s.Observe(common.Node{ID: "fresh"})

	live, err := s.RecentlyAlivePeersAscendingDistance(context.Background())
	if err != nil {
		t.Fatalf("RecentlyAlivePeersAscendingDistance: %v", err)
	}
	if len(live) != 1 || live[0].ID != "fresh" {
		t.Fatalf("live = %v, want [fresh]", live)
	}
}

func TestResultsAreSortedAscendingByDistance(t *testing.T) {
	s := New(time.Minute)
	s.Observe(common.Node{ID: "far", Distance: 30})
	s.Observe(common.Node{ID: "near", Distance: 1})
	s.Observe(common.Node{ID: "mid", Distance: 10})

	live, err := s.RecentlyAlivePeersAscendingDistance(context.Background())
	if err != nil {
		t.Fatalf("RecentlyAlivePeersAscendingDistance: %v", err)
	}
	want := []string{"near", "mid", "far"}
	for i, id := range want {
		if live[i].ID != id {
			t.Fatalf("live[%d].ID = %q, want %q (full: %v)", i, live[i].ID, id, live)
		}
	}
}

func TestRemovedPeerIsExcluded(t *testing.T) {
	s := New(time.Minute)
	peer := common.Node{ID: "p1"}
	s.Observe(peer)
	s.Remove(peer)

	live, err := s.RecentlyAlivePeersAscendingDistance(context.Background())
	if err != nil {
		t.Fatalf("RecentlyAlivePeersAscendingDistance: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("live = %v, want empty", live)
	}
}

var _ gossip.PeerDiscovery = (*StaticSet)(nil)
