// Package prometheus adapts the gossip core's internal/metrics registry
// to the Prometheus exposition format, modeled on the teacher's own
// metrics/prometheus collector.
package prometheus

import (
	"net/http"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casperlabs/casper-node/internal/metrics"
)

// Handler returns an http.Handler serving reg in Prometheus text format.
func Handler(reg *metrics.Registry) http.Handler {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(&collector{reg: reg})
	return promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
}

// collector bridges a metrics.Registry snapshot into Prometheus's pull
// model: each Collect call walks the live go-metrics registry, so counter
// and gauge values are always current as of scrape time.
type collector struct {
	reg *metrics.Registry
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic collector: descriptors are emitted alongside metrics in
	// Collect, matching the teacher's own unchecked-collector pattern.
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	c.reg.Each(func(name string, i interface{}) {
		desc := prometheus.NewDesc(name, name, nil, nil)
		switch v := i.(type) {
		case gometrics.Counter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v.Count()))
		case gometrics.Gauge:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v.Value()))
		}
	})
}
