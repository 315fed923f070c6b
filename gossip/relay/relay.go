// Package relay implements the Relay Engine (spec §4.1): given a set of
// block hashes, contact a bounded, randomized subset of live peers per
// hash and report which accepted the announcement.
package relay

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/gossip/waithandle"
	"github.com/casperlabs/casper-node/internal/clog"
	"github.com/casperlabs/casper-node/internal/metrics"
)

var log = clog.New("relay")

// Config is the Relay Engine's configuration (spec §4.1/§6).
type Config struct {
	RelayFactor     int  // target distinct acceptances per hash
	RelaySaturation int  // 0-100 cap knob
	IsSynchronous   bool // block the caller until the relay round ends
}

// maxToTry derives the saturation cap from Config, per spec §4.1:
// maxToTry = relayFactor * 100 / (100 - saturation), unlimited at 100.
func (c Config) maxToTry() int {
	if c.RelaySaturation >= 100 {
		return math.MaxInt
	}
	return c.RelayFactor * 100 / (100 - c.RelaySaturation)
}

// Engine is the Relay Engine.
type Engine struct {
	cfg       Config
	discovery gossip.PeerDiscovery
	connector gossip.Connector
	self      gossip.Node
	metrics   *metrics.Registry
}

// New constructs a Relay Engine. self is announced as the sender in each
// NewBlocks request.
func New(cfg Config, discovery gossip.PeerDiscovery, connector gossip.Connector, self gossip.Node, reg *metrics.Registry) *Engine {
	return &Engine{cfg: cfg, discovery: discovery, connector: connector, self: self, metrics: reg}
}

// Relay announces each hash in hashes to a bounded, randomized subset of
// live peers, returning a handle that completes when every hash's round
// has completed. All hashes proceed concurrently and each is shuffled
// independently (spec §4.1).
func (e *Engine) Relay(ctx context.Context, hashes []gossip.BlockHash) *waithandle.Handle {
	h := waithandle.New()

	run := func() {
		var g errgroup.Group
		for _, hash := range hashes {
			hash := hash
			g.Go(func() error {
				e.relayOne(ctx, hash)
				return nil
			})
		}
		_ = g.Wait()
		h.Complete(nil)
	}

	if e.cfg.IsSynchronous {
		run()
	} else {
		go run()
	}
	return h
}

// relayOne runs the per-hash algorithm of spec §4.1 steps 1-5. Errors
// from individual peers never propagate to the caller (spec §7).
func (e *Engine) relayOne(ctx context.Context, hash gossip.BlockHash) {
	peers, err := e.discovery.RecentlyAlivePeersAscendingDistance(ctx)
	if err != nil {
		log.Warn("could not list peers for relay", "hash", hash, "err", err)
		return
	}
	peers = shuffle(peers)

	maxToTry := e.cfg.maxToTry()
	relayed, contacted := 0, 0

	for contacted < len(peers) {
		parallelism := min(e.cfg.RelayFactor-relayed, maxToTry-contacted)
		if parallelism <= 0 {
			break
		}
		if contacted+parallelism > len(peers) {
			parallelism = len(peers) - contacted
		}
		batch := peers[contacted : contacted+parallelism]

		var g errgroup.Group
		outcomes := make([]bool, len(batch))
		for i, peer := range batch {
			i, peer := i, peer
			g.Go(func() error {
				outcomes[i] = e.announce(ctx, peer, hash)
				return nil
			})
		}
		_ = g.Wait()

		contacted += len(batch)
		for _, accepted := range outcomes {
			if accepted {
				relayed++
			}
		}
	}
}

// announce performs the per-peer announcement of spec §4.1: connect,
// send NewBlocks, tally the outcome. Any transport or remote error
// counts the peer as contacted but not relayed.
func (e *Engine) announce(ctx context.Context, peer gossip.Node, hash gossip.BlockHash) bool {
	svc, err := e.connector.Connect(ctx, peer)
	if err != nil {
		log.Debug("relay connect failed", "peer", peer, "hash", hash, "err", err)
		e.metrics.RelayFailed.Inc(1)
		return false
	}
	resp, err := svc.NewBlocks(ctx, gossip.NewBlocksRequest{Sender: e.self, BlockHashes: []gossip.BlockHash{hash}})
	if err != nil {
		log.Debug("relay announce failed", "peer", peer, "hash", hash, "err", err)
		e.metrics.RelayFailed.Inc(1)
		return false
	}
	if resp.IsNew {
		e.metrics.RelayAccepted.Inc(1)
		return true
	}
	e.metrics.RelayRejected.Inc(1)
	return false
}

func shuffle(nodes []common.Node) []common.Node {
	out := make([]common.Node, len(nodes))
	copy(out, nodes)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
