// Package metrics holds the Prometheus collectors of the advisor on a
// dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	chatStage    *prometheus.HistogramVec
	chatOutcomes *prometheus.CounterVec
	scrapeItems  *prometheus.CounterVec
}

// New registers the advisor collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		chatStage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "advisor_chat_stage_seconds",
			Help:    "Duration of chat pipeline stages.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		chatOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_chat_outcomes_total",
			Help: "Chat requests by outcome.",
		}, []string{"outcome"}),
		scrapeItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_scrape_items_total",
			Help: "Scraped module pages by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.httpRequests, m.chatStage, m.chatOutcomes, m.scrapeItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.chatStage.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ChatOutcome(outcome string) {
	if m == nil {
		return
	}
	m.chatOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ScrapeItem(result string) {
	if m == nil {
		return
	}
	m.scrapeItems.WithLabelValues(result).Inc()
}
