package gossip

import "context"

// PeerDiscovery is the peer-ranking collaborator the Relay Engine
// depends on (spec §6). internal/discovery ships a reference
// implementation.
type PeerDiscovery interface {
	// RecentlyAlivePeersAscendingDistance returns a snapshot of known
	// peers ordered ascending by distance from "recently alive" peers.
	// Freshness is expected within seconds; callers must not assume the
	// snapshot stays current.
	RecentlyAlivePeersAscendingDistance(ctx context.Context) ([]Node, error)
}
