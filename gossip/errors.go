package gossip

import (
	"errors"
	"fmt"

	"github.com/casperlabs/casper-node/common"
)

// ErrAlreadyShutDown is returned by ScheduleDownload once shutdown has
// begun (spec §7).
var ErrAlreadyShutDown = errors.New("gossip: already shut down")

// MissingDependenciesError reports a scheduling-order violation: the
// caller scheduled a block whose dependencies are neither stored nor
// already scheduled.
type MissingDependenciesError struct {
	BlockHash common.Hash
	Missing   []common.Hash
}

func (e *MissingDependenciesError) Error() string {
	return fmt.Sprintf("gossip: block %s is missing dependencies %v", e.BlockHash, e.Missing)
}

// InvalidChunksError reports a wire-format violation in a chunk stream
// (spec §4.3). Source identifies the peer the stream came from.
type InvalidChunksError struct {
	Reason string
	Source common.Node
}

func (e *InvalidChunksError) Error() string {
	return fmt.Sprintf("gossip: invalid chunk stream from %s: %s", e.Source, e.Reason)
}

// TransportError wraps a connect/stream failure against a specific
// source peer. Retriable.
type TransportError struct {
	Source common.Node
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gossip: transport error talking to %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError wraps a validation or storage failure reported by the
// Backend. Whether it is retriable is caller-classified (spec §9 Open
// Question 2) via the Classify function supplied to the Download
// Manager.
type BackendError struct {
	Op  string // "HasBlock", "validateBlock", "storeBlock", "storeBlockSummary"
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("gossip: backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ConfigurationError reports a fatal, caller-supplied misconfiguration
// (e.g. a backoff computation producing a non-finite delay).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gossip: configuration error: %s", e.Reason)
}
