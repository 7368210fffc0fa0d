package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the profiles service.
type Metrics struct {
	TechnologyLookups  *prometheus.CounterVec // labels: kind={turbine,solar}, provenance={custom,atlite}
	TechnologyNotFound *prometheus.CounterVec // labels: kind={turbine,solar}

	CutoutsFetched    prometheus.Counter
	CutoutsSkipped    prometheus.Counter
	CutoutValidations *prometheus.CounterVec // labels: status={match,mismatch,missing,remote_skipped,error}

	ProfilesGenerated *prometheus.CounterVec   // labels: kind={wind,solar}
	BridgeCallSeconds *prometheus.HistogramVec // labels: op
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TechnologyLookups,
		m.TechnologyNotFound,
		m.CutoutsFetched,
		m.CutoutsSkipped,
		m.CutoutValidations,
		m.ProfilesGenerated,
		m.BridgeCallSeconds,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TechnologyLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiles",
			Name:      "technology_lookups_total",
			Help:      "Technology resolutions by kind and provenance.",
		}, []string{"kind", "provenance"}),
		TechnologyNotFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiles",
			Name:      "technology_not_found_total",
			Help:      "Technology lookups that matched neither custom nor library source.",
		}, []string{"kind"}),
		CutoutsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "profiles",
			Name:      "cutouts_fetched_total",
			Help:      "Cutouts prepared and delivered to their target.",
		}),
		CutoutsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "profiles",
			Name:      "cutouts_skipped_total",
			Help:      "Cutouts skipped because the destination already existed.",
		}),
		CutoutValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiles",
			Name:      "cutout_validations_total",
			Help:      "Cutout validation outcomes by status.",
		}, []string{"status"}),
		ProfilesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiles",
			Name:      "profiles_generated_total",
			Help:      "Generated profile series by kind.",
		}, []string{"kind"}),
		BridgeCallSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "profiles",
			Name:      "bridge_call_duration_seconds",
			Help:      "Toolkit bridge subprocess call duration by operation.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 30, 120, 600, 1800},
		}, []string{"op"}),
	}
}
