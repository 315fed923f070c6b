// Package downloader implements the Download Manager (spec §4.2): a
// single scheduler goroutine that accepts block summaries with a
// dependency DAG, starts a worker per block once its dependencies have
// landed, and reports completion through tagged wait handles.
package downloader

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/semaphore"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/gossip/relay"
	"github.com/casperlabs/casper-node/gossip/waithandle"
	"github.com/casperlabs/casper-node/internal/clog"
	"github.com/casperlabs/casper-node/internal/metrics"
)

var log = clog.New("downloader")

// ErrorClassifier decides whether an error encountered while fetching or
// validating a block is fatal (true: give up on the item immediately) or
// transient (false: retry/failover per Config). Configuration errors
// are always treated as fatal regardless of what this function returns;
// every other error, including Backend errors, is left to this function
// (spec §7, DESIGN.md Open Question 2).
type ErrorClassifier func(error) bool

// Config is the Download Manager's tunable behavior (spec §4.2/§6).
type Config struct {
	MaxParallelDownloads int
	MaxRetries           int
	InitialBackoff       time.Duration
	BackoffFactor        float64
}

// scheduleSignal, successSignal and failureSignal are the only messages
// the scheduler loop ever consumes, mirroring the hashCh/blockCh
// single-consumer channel shape the Download Manager is modeled on.
type scheduleSignal struct {
	summary        gossip.BlockSummary
	source         gossip.Node
	relay          bool
	scheduleHandle *waithandle.Handle
	downloadHandle *waithandle.Handle
}

type successSignal struct {
	hash gossip.BlockHash
}

type failureSignal struct {
	hash gossip.BlockHash
	err  error
}

// Manager is the Download Manager. Every field below the channels is
// touched only by the scheduler loop goroutine; worker goroutines only
// ever reach into an item's sources and relay fields (via its own mutex)
// and post signals back through the channel.
type Manager struct {
	cfg       Config
	backend   gossip.Backend
	connector gossip.Connector
	relay     *relay.Engine
	classify  ErrorClassifier
	metrics   *metrics.Registry
	sem       *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	signals  chan any
	loopDone chan struct{}
	drained  chan struct{}
	wg       sync.WaitGroup

	isShutdown   atomic.Bool
	shutdownOnce sync.Once

	items     map[gossip.BlockHash]*item
	completed mapset.Set[gossip.BlockHash]
}

// New constructs a Download Manager and starts its scheduler loop.
// relayEngine may be nil if no item will ever request relay=true.
func New(ctx context.Context, cfg Config, backend gossip.Backend, connector gossip.Connector, relayEngine *relay.Engine, classify ErrorClassifier, reg *metrics.Registry) *Manager {
	loopCtx, cancel := context.WithCancel(ctx)
	m := &Manager{
		cfg:       cfg,
		backend:   backend,
		connector: connector,
		relay:     relayEngine,
		classify:  classify,
		metrics:   reg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxParallelDownloads)),
		ctx:       loopCtx,
		cancel:    cancel,
		signals:   make(chan any, 64),
		loopDone:  make(chan struct{}),
		drained:   make(chan struct{}),
		items:     make(map[gossip.BlockHash]*item),
		completed: mapset.NewThreadUnsafeSet[gossip.BlockHash](),
	}
	go m.loop()
	return m
}

// ScheduleDownload enqueues a block summary for download (spec §4.2).
// The returned ScheduleHandle completes as soon as the item has entered
// (or merged into) the scheduler's bookkeeping, or with
// *gossip.MissingDependenciesError if a parent/justification hash is
// neither stored in the Backend nor scheduled. The returned DownloadHandle completes
// once the block has been stored (or permanently failed).
func (m *Manager) ScheduleDownload(ctx context.Context, summary gossip.BlockSummary, source gossip.Node, relay bool) (waithandle.ScheduleHandle, waithandle.DownloadHandle) {
	sh := waithandle.NewScheduleHandle()
	dh := waithandle.NewDownloadHandle()

	if m.isShutdown.Load() {
		sh.Complete(gossip.ErrAlreadyShutDown)
		dh.Complete(gossip.ErrAlreadyShutDown)
		return sh, dh
	}

	sig := scheduleSignal{summary: summary, source: source, relay: relay, scheduleHandle: sh.Handle, downloadHandle: dh.Handle}
	select {
	case m.signals <- sig:
	case <-ctx.Done():
		sh.Complete(ctx.Err())
		dh.Complete(ctx.Err())
	}
	return sh, dh
}

// Shutdown cancels all in-flight work, fails every pending item's
// watchers with gossip.ErrAlreadyShutDown, and blocks until the
// scheduler loop and every worker goroutine has exited. Further calls
// to ScheduleDownload after Shutdown returns always fail synchronously.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.isShutdown.Store(true)
		m.cancel()
	})
	<-m.loopDone
}

func (m *Manager) loop() {
	defer close(m.loopDone)
	for {
		select {
		case <-m.ctx.Done():
			m.shutdownPending()
			return
		case sig := <-m.signals:
			m.dispatch(sig)
		}
	}
}

func (m *Manager) dispatch(sig any) {
	switch s := sig.(type) {
	case scheduleSignal:
		m.handleSchedule(s)
	case successSignal:
		m.handleSuccess(s.hash)
	case failureSignal:
		m.handleFailure(s.hash, s.err)
	}
}

// shutdownPending fails every tracked item's watchers, then drains
// whatever signals in-flight workers still post until they've all
// exited, so no worker goroutine ever blocks forever on a send.
func (m *Manager) shutdownPending() {
	for hash, it := range m.items {
		it.completeWatchers(gossip.ErrAlreadyShutDown)
		delete(m.items, hash)
	}
	go func() {
		m.wg.Wait()
		close(m.drained)
	}()
	for {
		select {
		case sig := <-m.signals:
			if s, ok := sig.(scheduleSignal); ok {
				s.scheduleHandle.Complete(gossip.ErrAlreadyShutDown)
				s.downloadHandle.Complete(gossip.ErrAlreadyShutDown)
			}
		case <-m.drained:
			return
		}
	}
}

func (m *Manager) handleSchedule(s scheduleSignal) {
	hash := s.summary.BlockHash

	if m.completed.Contains(hash) {
		s.scheduleHandle.Complete(nil)
		s.downloadHandle.Complete(nil)
		return
	}

	if it, exists := m.items[hash]; exists {
		if it.isError {
			delete(m.items, hash)
		} else {
			it.merge(s.source, s.relay, s.downloadHandle)
			s.scheduleHandle.Complete(nil)
			return
		}
	}

	deps := mapset.NewThreadUnsafeSet[gossip.BlockHash]()
	var missing []common.Hash
	for _, dep := range s.summary.Dependencies().ToSlice() {
		if m.completed.Contains(dep) {
			continue
		}
		if _, known := m.items[dep]; known {
			deps.Add(dep) // pending, or permanently tombstoned: either way this item must wait
			continue
		}
		if has, err := m.backend.HasBlock(m.ctx, dep); err == nil && has {
			continue
		}
		missing = append(missing, dep)
	}
	if len(missing) > 0 {
		sort.Sort(common.HashSlice(missing))
		err := &gossip.MissingDependenciesError{BlockHash: hash, Missing: missing}
		s.scheduleHandle.Complete(err)
		s.downloadHandle.Complete(err)
		return
	}

	it := newItem(s.summary, s.source, s.relay, deps)
	it.watchers = append(it.watchers, s.downloadHandle)
	m.items[hash] = it
	m.metrics.DownloadsScheduled.Inc(1)
	s.scheduleHandle.Complete(nil)

	m.maybeStart(hash, it)
}

func (m *Manager) maybeStart(hash gossip.BlockHash, it *item) {
	if !it.canStart() {
		return
	}
	it.isDownloading = true
	m.metrics.DownloadsScheduled.Dec(1)
	m.metrics.DownloadsOngoing.Inc(1)

	m.wg.Add(1)
	go m.runWorker(hash, it)
}

func (m *Manager) handleSuccess(hash gossip.BlockHash) {
	it, ok := m.items[hash]
	if !ok {
		return
	}
	delete(m.items, hash)
	m.completed.Add(hash)
	it.completeWatchers(nil)

	m.metrics.DownloadsOngoing.Dec(1)
	m.metrics.DownloadsSucceeded.Inc(1)

	for dependentHash, dependent := range m.items {
		if dependent.dependencies.Contains(hash) {
			dependent.dependencies.Remove(hash)
			m.maybeStart(dependentHash, dependent)
		}
	}
}

func (m *Manager) handleFailure(hash gossip.BlockHash, err error) {
	it, ok := m.items[hash]
	if !ok {
		return
	}
	it.isDownloading = false
	it.isError = true
	it.completeWatchers(err)

	m.metrics.DownloadsOngoing.Dec(1)
	m.metrics.DownloadsFailed.Inc(1)

	log.Warn("download failed permanently", "hash", hash, "err", err)
	// Dependents stay blocked: their dependency set still contains hash
	// until a later ScheduleDownload of hash replaces this tombstone and
	// that download succeeds.
}
