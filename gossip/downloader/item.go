package downloader

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/gossip/waithandle"
)

// item is the Download Manager's internal per-hash bookkeeping record
// (spec §3 "Download item"). Every field except mu/sources/relay is
// owned exclusively by the scheduler loop goroutine. sources and relay
// are the two fields a worker also reads while the scheduler can still
// be mutating them via a merged ScheduleDownload call, so both are
// guarded by the same mutex (spec §5: "workers ... observe state by
// reading a snapshot reference, safe for sources widening only" — relay
// widens the same way sources does, so it gets the same treatment).
type item struct {
	summary gossip.BlockSummary

	mu      sync.Mutex
	sources mapset.Set[gossip.Node]
	relay   bool // sticky-OR: once true, stays true

	dependencies  mapset.Set[gossip.BlockHash] // hashes still pending
	isDownloading bool
	isError       bool // tombstone flag

	watchers []*waithandle.Handle
}

func newItem(summary gossip.BlockSummary, source gossip.Node, relay bool, deps mapset.Set[gossip.BlockHash]) *item {
	it := &item{
		summary:      summary,
		sources:      mapset.NewThreadUnsafeSet[gossip.Node](),
		relay:        relay,
		dependencies: deps,
	}
	it.sources.Add(source)
	return it
}

// canStart reports the spec's invariant: canStart ≡ ¬isDownloading ∧
// dependencies = ∅.
func (it *item) canStart() bool {
	return !it.isDownloading && it.dependencies.Cardinality() == 0
}

// merge folds a repeated scheduleDownload call for the same hash into
// this item: add source to sources, OR in relay, append watcher.
func (it *item) merge(source gossip.Node, relay bool, watcher *waithandle.Handle) {
	it.mu.Lock()
	it.sources.Add(source)
	if relay {
		it.relay = true
	}
	it.mu.Unlock()

	if watcher != nil {
		it.watchers = append(it.watchers, watcher)
	}
}

// sourcesSnapshot returns a point-in-time copy of the item's sources,
// safe to call concurrently with the scheduler widening the set.
func (it *item) sourcesSnapshot() []gossip.Node {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.sources.ToSlice()
}

// shouldRelay returns the current value of relay, safe to call
// concurrently with merge widening it mid-download.
func (it *item) shouldRelay() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.relay
}

// completeWatchers completes every watcher exactly once with err, then
// clears the list.
func (it *item) completeWatchers(err error) {
	for _, w := range it.watchers {
		w.Complete(err)
	}
	it.watchers = nil
}
