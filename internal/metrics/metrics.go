// Package metrics declares the gossip core's metrics surface (§6) on top
// of rcrowley/go-metrics, the teacher's own historical metrics
// dependency. All counters and gauges are registered, at zero, by
// NewRegistry so the surface is fully declared at startup.
package metrics

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// Names of the metrics declared in spec §6.
const (
	RelayAccepted      = "relay_accepted"
	RelayRejected      = "relay_rejected"
	RelayFailed        = "relay_failed"
	DownloadsSucceeded = "downloads_succeeded"
	DownloadsFailed    = "downloads_failed"
	DownloadsScheduled = "downloads_scheduled" // gauge, tracked via a Counter's Inc/Dec
	DownloadsOngoing   = "downloads_ongoing"   // gauge, tracked via a Counter's Inc/Dec
	FetchesOngoing     = "fetches_ongoing"     // gauge, tracked via a Counter's Inc/Dec
)

// Registry is the gossip core's metrics namespace. DownloadsScheduled,
// DownloadsOngoing and FetchesOngoing are conceptually gauges but are
// backed by a go-metrics Counter: go-metrics' Gauge only exposes
// Update(int64), not Inc/Dec, and the downloader only ever knows deltas
// (+1 on start, -1 on completion), never the absolute in-flight count.
type Registry struct {
	inner gometrics.Registry

	RelayAccepted      gometrics.Counter
	RelayRejected      gometrics.Counter
	RelayFailed        gometrics.Counter
	DownloadsSucceeded gometrics.Counter
	DownloadsFailed    gometrics.Counter
	DownloadsScheduled gometrics.Counter
	DownloadsOngoing   gometrics.Counter
	FetchesOngoing     gometrics.Counter
}

// NewRegistry constructs a Registry with every metric in the surface
// declared and initialized to zero.
func NewRegistry() *Registry {
	r := &Registry{inner: gometrics.NewRegistry()}

	reg := func(name string, m interface{}) {
		if err := r.inner.Register(name, m); err != nil {
			// Registration only fails on a duplicate name, which cannot
			// happen against a freshly constructed registry.
			panic(err)
		}
	}

	r.RelayAccepted = gometrics.NewCounter()
	reg(RelayAccepted, r.RelayAccepted)
	r.RelayRejected = gometrics.NewCounter()
	reg(RelayRejected, r.RelayRejected)
	r.RelayFailed = gometrics.NewCounter()
	reg(RelayFailed, r.RelayFailed)
	r.DownloadsSucceeded = gometrics.NewCounter()
	reg(DownloadsSucceeded, r.DownloadsSucceeded)
	r.DownloadsFailed = gometrics.NewCounter()
	reg(DownloadsFailed, r.DownloadsFailed)
	r.DownloadsScheduled = gometrics.NewCounter()
	reg(DownloadsScheduled, r.DownloadsScheduled)
	r.DownloadsOngoing = gometrics.NewCounter()
	reg(DownloadsOngoing, r.DownloadsOngoing)
	r.FetchesOngoing = gometrics.NewCounter()
	reg(FetchesOngoing, r.FetchesOngoing)

	return r
}

// Each iterates the underlying rcrowley/go-metrics registry, e.g. for
// export.
func (r *Registry) Each(f func(name string, i interface{})) {
	r.inner.Each(f)
}
