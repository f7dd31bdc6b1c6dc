package exec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/cellexec/code"
	"github.com/jonwraymond/cellexec/namespace"
)

// Outcome labels of the cells_total counter.
const (
	OutcomeOK        = "ok"
	OutcomeFault     = "fault"
	OutcomeInvalid   = "invalid"
	OutcomeLimit     = "limit"
	OutcomeCancelled = "cancelled"
)

type metrics struct {
	cells    *prometheus.CounterVec
	duration prometheus.Histogram
	entries  prometheus.GaugeFunc
}

func newMetrics(reg prometheus.Registerer, store namespace.Store) (*metrics, error) {
	m := &metrics{
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellexec",
			Name:      "cells_total",
			Help:      "Cells executed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cellexec",
			Name:      "cell_duration_seconds",
			Help:      "Wall time of cell requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		entries: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cellexec",
			Name:      "store_entries",
			Help:      "Namespaces currently stored.",
		}, func() float64 { return float64(store.Len()) }),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.cells, m.duration, m.entries} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%w: register metrics: %w", ErrInvalidOptions, err)
		}
	}
	return m, nil
}

func (m *metrics) observe(err error, d time.Duration) {
	m.cells.WithLabelValues(outcomeOf(err)).Inc()
	m.duration.Observe(d.Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidRequest):
		return OutcomeInvalid
	case errors.Is(err, code.ErrLimitExceeded):
		return OutcomeLimit
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	default:
		return OutcomeFault
	}
}
