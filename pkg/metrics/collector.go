// Package metrics exports controller lifecycle events as prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/sequence"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "formsequence"

// Collector records lifecycle events of the controllers it observes.
type Collector struct {
	events     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   *prometheus.GaugeVec
	returnedAt *prometheus.HistogramVec

	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCollector registers the lifecycle metrics with reg. A nil reg uses the
// default prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, options ...Option) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		logger:  zap.NewNop(),
		now:     time.Now,
		started: make(map[uuid.UUID]time.Time),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	c.logger = c.logger.Named("metrics")

	factory := promauto.With(reg)
	c.events = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle events emitted by form sequence controllers",
		},
		[]string{"group", "event"},
	)
	c.duration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time from step start until the step ended or was closed",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"group", "outcome"},
	)
	c.inflight = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "steps_in_flight",
			Help:      "Steps waiting for a response",
		},
		[]string{"group"},
	)
	c.returnedAt = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "steps_per_sequence",
			Help:      "Forms rendered before a sequence returned to its host page",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"group"},
	)
	return c
}

// Observe subscribes the collector to ctrl. The returned function stops
// observing.
func (c *Collector) Observe(ctrl *sequence.Controller) func() {
	if ctrl == nil {
		return func() {}
	}
	return ctrl.OnAny(c.Record)
}

// Record accounts for one lifecycle event.
func (c *Collector) Record(ev sequence.Event) {
	if ev.Controller == nil {
		return
	}
	group := ev.Controller.Group()
	id := ev.Controller.ID()
	c.events.WithLabelValues(group, ev.Name).Inc()

	switch ev.Name {
	case sequence.EventStart:
		c.mu.Lock()
		_, pending := c.started[id]
		c.started[id] = c.now()
		c.mu.Unlock()
		if !pending {
			c.inflight.WithLabelValues(group).Inc()
		}
	case sequence.EventDone:
		c.finish(id, group, "rendered")
	case sequence.EventError:
		c.finish(id, group, "failed")
	case sequence.EventReturn:
		c.finish(id, group, "returned")
		c.returnedAt.WithLabelValues(group).Observe(float64(ev.Controller.Step()))
	case sequence.EventClose:
		c.finish(id, group, "closed")
	}
}

func (c *Collector) finish(id uuid.UUID, group, outcome string) {
	c.mu.Lock()
	began, ok := c.started[id]
	delete(c.started, id)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.inflight.WithLabelValues(group).Dec()
	elapsed := c.now().Sub(began)
	c.duration.WithLabelValues(group, outcome).Observe(elapsed.Seconds())
	c.logger.Debug("step finished",
		zap.String("group", group),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	)
}
