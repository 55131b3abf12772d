// Package metrics exposes Prometheus collectors for settings documents.
//
// Every method is safe to call on a nil *Collector, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jsettings"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultEmpty = "empty"
)

// Collector holds the settings document metrics.
type Collector struct {
	Loads         *prometheus.CounterVec
	Saves         *prometheus.CounterVec
	SaveDuration  prometheus.Histogram
	Rotations     prometheus.Counter
	Writes        *prometheus.CounterVec
	DocumentBytes prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "document",
				Name:      "loads_total",
				Help:      "Total number of document loads by result",
			},
			[]string{"result"},
		),

		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "document",
				Name:      "saves_total",
				Help:      "Total number of document saves by result",
			},
			[]string{"result"},
		),

		SaveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "document",
				Name:      "save_duration_seconds",
				Help:      "Time spent writing and rotating a document",
				Buckets:   prometheus.DefBuckets,
			},
		),

		Rotations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backup",
				Name:      "rotations_total",
				Help:      "Total number of saves that rotated backups",
			},
		),

		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "setting",
				Name:      "writes_total",
				Help:      "Total number of setting writes by result",
			},
			[]string{"result"},
		),

		DocumentBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "document",
				Name:      "bytes",
				Help:      "Size of the last saved or loaded document",
			},
		),
	}

	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.Loads, c.Saves, c.SaveDuration, c.Rotations, c.Writes, c.DocumentBytes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveLoad records a load outcome and the loaded size.
func (c *Collector) ObserveLoad(result string, size int) {
	if c == nil {
		return
	}
	c.Loads.WithLabelValues(result).Inc()
	if result == ResultOK {
		c.DocumentBytes.Set(float64(size))
	}
}

// ObserveSave records a save outcome.
func (c *Collector) ObserveSave(result string, size int, rotated bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Saves.WithLabelValues(result).Inc()
	c.SaveDuration.Observe(elapsed.Seconds())
	if result != ResultOK {
		return
	}
	c.DocumentBytes.Set(float64(size))
	if rotated {
		c.Rotations.Inc()
	}
}

// ObserveWrite records a setting write.
func (c *Collector) ObserveWrite(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.Writes.WithLabelValues(ResultError).Inc()
		return
	}
	c.Writes.WithLabelValues(ResultOK).Inc()
}
