// Package metrics exposes the keeper's operational counters and gauges in
// Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solheir/heirkeeper/pkg/models"
)

// Collector holds the keeper's metric families
type Collector struct {
	cyclesTotal       prometheus.Counter
	cyclesSkipped     *prometheus.CounterVec
	recordsDiscovered prometheus.Gauge
	recordsEligible   prometheus.Gauge
	executionsTotal   *prometheus.CounterVec
	operatingBalance  prometheus.Gauge
	cycleDuration     prometheus.Histogram
}

// NewCollector creates and registers the keeper metrics
func NewCollector() *Collector {
	c := &Collector{
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heirkeeper_cycles_total",
			Help: "Total keeper cycles run",
		}),
		cyclesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heirkeeper_cycles_skipped_total",
			Help: "Cycles whose execution phase was skipped, by reason",
		}, []string{"reason"}), // "funding", "discovery_failed"
		recordsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heirkeeper_records_discovered",
			Help: "Unclaimed records found in the last cycle",
		}),
		recordsEligible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heirkeeper_records_eligible",
			Help: "Eligible records found in the last cycle",
		}),
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heirkeeper_executions_total",
			Help: "Dispatch outcomes by result class",
		}, []string{"outcome", "kind"}),
		operatingBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heirkeeper_operating_balance_lamports",
			Help: "Keeper operating account balance at the last funding check",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heirkeeper_cycle_duration_seconds",
			Help:    "Wall-clock duration of keeper cycles",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	prometheus.MustRegister(
		c.cyclesTotal,
		c.cyclesSkipped,
		c.recordsDiscovered,
		c.recordsEligible,
		c.executionsTotal,
		c.operatingBalance,
		c.cycleDuration,
	)
	return c
}

// RecordCycle updates the per-cycle gauges and counters from a report
func (c *Collector) RecordCycle(report *models.CycleReport) {
	if c == nil {
		return
	}
	c.cyclesTotal.Inc()
	c.recordsDiscovered.Set(float64(report.Discovered))
	c.recordsEligible.Set(float64(report.Eligible))
	c.cycleDuration.Observe(report.Duration.Seconds())
	for _, result := range report.Results {
		c.executionsTotal.WithLabelValues(string(result.Outcome), string(result.Kind)).Inc()
	}
}

// RecordSkip counts a cycle whose execution phase did not run
func (c *Collector) RecordSkip(reason string) {
	if c == nil {
		return
	}
	c.cyclesSkipped.WithLabelValues(reason).Inc()
}

// RecordBalance updates the operating balance gauge
func (c *Collector) RecordBalance(lamports uint64) {
	if c == nil {
		return
	}
	c.operatingBalance.Set(float64(lamports))
}
