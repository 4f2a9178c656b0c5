package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReportMetrics observes cached report builds.
type ReportMetrics struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewReportMetrics registers report cache collectors. Collectors already
// registered under the same name are reused.
func NewReportMetrics(reg prometheus.Registerer) (*ReportMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_cache_hits_total",
		Help: "Report results served from cache.",
	}, []string{"report", "type"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_cache_miss_total",
		Help: "Report results built because the cache was cold.",
	}, []string{"report", "type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_report_build_duration_seconds",
		Help:    "Duration required to build report results.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report", "type"})

	var err error
	if hits, err = registerCounter(reg, hits); err != nil {
		return nil, err
	}
	if misses, err = registerCounter(reg, misses); err != nil {
		return nil, err
	}
	if err := reg.Register(duration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		duration = existing
	}
	return &ReportMetrics{hits: hits, misses: misses, duration: duration}, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		return existing, nil
	}
	return c, nil
}

// Hit records a cache hit.
func (m *ReportMetrics) Hit(report, typ string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(report, typ).Inc()
}

// Miss records a cache miss.
func (m *ReportMetrics) Miss(report, typ string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(report, typ).Inc()
}

// ObserveBuild records how long a build took.
func (m *ReportMetrics) ObserveBuild(report, typ string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(report, typ).Observe(d.Seconds())
}
