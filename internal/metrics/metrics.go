// Package metrics is a thin abstraction over Prometheus so hashcons can be
// used with or without metrics: a Sink interface, a no-op implementation
// used by default, and a Prometheus-backed implementation activated by
// table.WithMetrics. The hot path (Lookup/LookupCustom) pays for metric
// updates only when a real registry was supplied.
//
// © 2025 hashcons authors. MIT License.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the internal interface abstracting away the concrete backend.
type Sink interface {
	IncLookup(created bool)
	IncProbeExhausted()
	IncTableFull()
	ObserveRehash(d time.Duration)
	SetOccupancy(n uint64)
	SetMarked(n uint64)
}

/* ---------------- No-op implementation ---------------- */

type noop struct{}

func (noop) IncLookup(bool)               {}
func (noop) IncProbeExhausted()           {}
func (noop) IncTableFull()                {}
func (noop) ObserveRehash(time.Duration)  {}
func (noop) SetOccupancy(uint64)          {}
func (noop) SetMarked(uint64)             {}

/* ---------------- Prometheus implementation ---------------- */

type prom struct {
	lookups        *prometheus.CounterVec
	probeExhausted prometheus.Counter
	tableFull      prometheus.Counter
	rehashSeconds  prometheus.Histogram
	occupancy      prometheus.Gauge
	marked         prometheus.Gauge
}

func newProm(reg *prometheus.Registry, namespace string) *prom {
	p := &prom{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Number of Lookup/LookupCustom calls, labeled by outcome.",
		}, []string{"outcome"}),
		probeExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_exhausted_total",
			Help:      "Number of lookups that exhausted their probe budget; rehash and notify sweeps are not counted.",
		}),
		tableFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_full_total",
			Help:      "Number of lookups that could not claim a payload slot.",
		}),
		rehashSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rehash_seconds",
			Help:      "Duration of full clear+rehash GC cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		occupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "occupancy",
			Help:      "Payload slots currently occupied.",
		}),
		marked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "marked",
			Help:      "Payload slots marked live as of the last count-marked sweep.",
		}),
	}
	reg.MustRegister(p.lookups, p.probeExhausted, p.tableFull, p.rehashSeconds, p.occupancy, p.marked)
	return p
}

func (p *prom) IncLookup(created bool) {
	if created {
		p.lookups.WithLabelValues("created").Inc()
	} else {
		p.lookups.WithLabelValues("found").Inc()
	}
}
func (p *prom) IncProbeExhausted()          { p.probeExhausted.Inc() }
func (p *prom) IncTableFull()               { p.tableFull.Inc() }
func (p *prom) ObserveRehash(d time.Duration) { p.rehashSeconds.Observe(d.Seconds()) }
func (p *prom) SetOccupancy(n uint64)       { p.occupancy.Set(float64(n)) }
func (p *prom) SetMarked(n uint64)          { p.marked.Set(float64(n)) }

/* ---------------- Factory ---------------- */

// New decides which implementation to use. A nil registry yields the no-op
// sink: metrics are opt-in, never default-on.
func New(reg *prometheus.Registry, namespace string) Sink {
	if reg == nil {
		return noop{}
	}
	if namespace == "" {
		namespace = "hashcons"
	}
	return newProm(reg, namespace)
}
