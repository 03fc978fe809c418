// Package metrics exposes session and profile sync counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"dubaivat/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vatsync"

// Collector implements service.SyncMetrics on Prometheus collectors.
type Collector struct {
	resolutions       *prometheus.CounterVec
	resolutionLatency prometheus.Histogram
	droppedEvents     *prometheus.CounterVec
	safetyTimers      *prometheus.CounterVec
	profileSaves      *prometheus.CounterVec
	conflictRecovery  *prometheus.CounterVec
}

var _ service.SyncMetrics = (*Collector)(nil)

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_resolutions_total",
			Help:      "Profile resolutions applied by the session machine, by outcome.",
		}, []string{"outcome"}),
		resolutionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_resolution_seconds",
			Help:      "Latency of profile resolutions.",
			Buckets:   prometheus.DefBuckets,
		}),
		droppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Auth events dropped by the in-flight guard, by event type.",
		}, []string{"event"}),
		safetyTimers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_timer_fired_total",
			Help:      "Safety timers that forced a transition, by timer.",
		}, []string{"timer"}),
		profileSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_saves_total",
			Help:      "Profile saves, by outcome.",
		}, []string{"outcome"}),
		conflictRecovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_recoveries_total",
			Help:      "Create conflicts retried as updates, by whether the retry succeeded.",
		}, []string{"recovered"}),
	}

	reg.MustRegister(
		c.resolutions,
		c.resolutionLatency,
		c.droppedEvents,
		c.safetyTimers,
		c.profileSaves,
		c.conflictRecovery,
	)

	return c
}

func (c *Collector) RecordResolution(outcome string, latency time.Duration) {
	c.resolutions.WithLabelValues(outcome).Inc()
	c.resolutionLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordDroppedEvent(eventType string) {
	c.droppedEvents.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordSafetyTimer(timer string) {
	c.safetyTimers.WithLabelValues(timer).Inc()
}

func (c *Collector) RecordProfileSave(outcome string) {
	c.profileSaves.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordConflictRecovery(recovered bool) {
	c.conflictRecovery.WithLabelValues(strconv.FormatBool(recovered)).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
