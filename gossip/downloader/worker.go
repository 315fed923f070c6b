package downloader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/gossip/chunk"
	"github.com/casperlabs/casper-node/gossip/compression"
)

// runWorker drives one item to a terminal state and reports the outcome
// back to the scheduler loop. It never touches m.items directly; all
// item mutation after this point happens through the signal it posts.
func (m *Manager) runWorker(hash gossip.BlockHash, it *item) {
	defer m.wg.Done()

	err := m.download(m.ctx, hash, it)
	if err != nil {
		m.signals <- failureSignal{hash: hash, err: err}
		return
	}
	m.signals <- successSignal{hash: hash}
}

// download runs the per-item algorithm of spec §4.2 step 3: skip if
// already stored, then try each known source in turn (failover), each
// with its own bounded retry-with-backoff (spec §4.2 step 3a-3b), until
// one succeeds or every source is exhausted. On exhaustion it reports the
// first error encountered, per spec §4.2, not the last. Sources are tried
// in the iteration order of the item's source set, which is not defined.
func (m *Manager) download(ctx context.Context, hash gossip.BlockHash, it *item) error {
	has, err := m.backend.HasBlock(ctx, hash)
	if err != nil {
		return &gossip.BackendError{Op: "HasBlock", Err: err}
	}
	if has {
		return nil
	}

	tried := mapset.NewThreadUnsafeSet[gossip.Node]()
	var firstErr error

	for {
		source, ok := nextUntried(it.sourcesSnapshot(), tried)
		if !ok {
			break
		}
		tried.Add(source)

		err := m.downloadFromSource(ctx, hash, it, source)
		if err == nil {
			return nil
		}
		if isFatal(err, m.classify) {
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
		log.Debug("download attempt failed, trying next source", "hash", hash, "source", source, "err", err)
	}

	if firstErr == nil {
		firstErr = fmt.Errorf("downloader: no sources available for %s", hash)
	}
	return firstErr
}

// downloadFromSource fetches (with retry), validates, stores and
// relays a single block from a single source.
func (m *Manager) downloadFromSource(ctx context.Context, hash gossip.BlockHash, it *item, source gossip.Node) error {
	body, err := m.fetchWithRetry(ctx, hash, source)
	if err != nil {
		return err
	}

	block := &gossip.Block{Summary: it.summary, Body: body}
	if err := m.backend.ValidateBlock(ctx, block); err != nil {
		return &gossip.BackendError{Op: "validateBlock", Err: err}
	}
	if err := m.backend.StoreBlock(ctx, block); err != nil {
		return &gossip.BackendError{Op: "storeBlock", Err: err}
	}
	if err := m.backend.StoreBlockSummary(ctx, it.summary); err != nil {
		return &gossip.BackendError{Op: "storeBlockSummary", Err: err}
	}

	if it.shouldRelay() && m.relay != nil {
		m.relay.Relay(ctx, []gossip.BlockHash{hash})
	}
	return nil
}

// fetchWithRetry retries the same source with exponential backoff
// (spec §4.2 step 3a: initialBackoff * backoffFactor^attempt),
// MaxRetries=0 meaning a single attempt with no backoff.
func (m *Manager) fetchWithRetry(ctx context.Context, hash gossip.BlockHash, source gossip.Node) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := m.backoff(attempt - 1)
			if math.IsNaN(delay) || math.IsInf(delay, 0) {
				return nil, &gossip.ConfigurationError{Reason: "computed backoff delay is not finite"}
			}
			timer := time.NewTimer(time.Duration(delay))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		body, err := m.fetchOnce(ctx, hash, source)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if isFatal(err, m.classify) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (m *Manager) backoff(attempt int) float64 {
	return float64(m.cfg.InitialBackoff) * math.Pow(m.cfg.BackoffFactor, float64(attempt))
}

// fetchOnce acquires the global fetch permit, streams the chunked
// response from source, and folds it into a block body.
func (m *Manager) fetchOnce(ctx context.Context, hash gossip.BlockHash, source gossip.Node) ([]byte, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.sem.Release(1)

	m.metrics.FetchesOngoing.Inc(1)
	defer m.metrics.FetchesOngoing.Dec(1)

	svc, err := m.connector.Connect(ctx, source)
	if err != nil {
		return nil, &gossip.TransportError{Source: source, Err: err}
	}
	reader, err := svc.GetBlockChunked(ctx, gossip.GetBlockChunkedRequest{
		BlockHash:                     hash,
		AcceptedCompressionAlgorithms: []string{string(compression.None), string(compression.LZ4)},
	})
	if err != nil {
		return nil, &gossip.TransportError{Source: source, Err: err}
	}
	defer reader.Close()

	return chunk.Assemble(ctx, reader, source)
}

// nextUntried returns the first source in sources not already in tried.
func nextUntried(sources []gossip.Node, tried mapset.Set[gossip.Node]) (gossip.Node, bool) {
	for _, s := range sources {
		if !tried.Contains(s) {
			return s, true
		}
	}
	return gossip.Node{}, false
}

// isFatal reports whether err should abort the item immediately rather
// than retry or fail over. ConfigurationError is always fatal; every
// other error is handed to classify, which defaults to "never fatal" so
// MaxRetries/failover alone bound the work (spec §9 Open Question 2).
func isFatal(err error, classify ErrorClassifier) bool {
	var cfgErr *gossip.ConfigurationError
	if errors.As(err, &cfgErr) {
		return true
	}
	if classify != nil {
		return classify(err)
	}
	return false
}
