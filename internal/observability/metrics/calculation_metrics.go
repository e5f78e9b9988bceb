package metrics

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CalculationMetrics captures tax engine throughput and routing signals.
type CalculationMetrics struct {
	calculations   *prometheus.CounterVec
	calcDuration   *prometheus.HistogramVec
	bulkBatches    prometheus.Counter
	bulkItems      prometheus.Counter
	bulkDuration   prometheus.Observer
	cacheRequests  *prometheus.CounterVec
	engineRoutings *prometheus.CounterVec
}

// Config carries the constant labels applied to every metric.
type Config struct {
	ServiceName string
	Environment string
}

var (
	calculationMetricsOnce sync.Once
	calculationMetrics     *CalculationMetrics
)

// Calculation returns the singleton calculation metrics registry.
func Calculation() *CalculationMetrics {
	return CalculationWithConfig(Config{})
}

// CalculationWithConfig returns the singleton using config labels.
func CalculationWithConfig(cfg Config) *CalculationMetrics {
	calculationMetricsOnce.Do(func() {
		calculationMetrics = newCalculationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return calculationMetrics
}

// ResetCalculationMetricsForTest resets the singleton for tests.
func ResetCalculationMetricsForTest() {
	calculationMetricsOnce = sync.Once{}
	calculationMetrics = nil
}

func newCalculationMetrics(registerer prometheus.Registerer, cfg Config) *CalculationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "taxrail"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	factory := promauto(registerer)

	m := &CalculationMetrics{
		calculations: factory.counterVec(prometheus.CounterOpts{
			Name:        "tax_calculations_total",
			Help:        "Tax calculations by engine and outcome.",
			ConstLabels: constLabels,
		}, []string{"engine", "outcome"}),
		calcDuration: factory.histogramVec(prometheus.HistogramOpts{
			Name:        "tax_calculation_duration_seconds",
			Help:        "Single calculation latency.",
			ConstLabels: constLabels,
			Buckets:     []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"engine"}),
		bulkBatches: factory.counter(prometheus.CounterOpts{
			Name:        "tax_bulk_batches_total",
			Help:        "Bulk calculation batches processed.",
			ConstLabels: constLabels,
		}),
		bulkItems: factory.counter(prometheus.CounterOpts{
			Name:        "tax_bulk_items_total",
			Help:        "Line items processed through bulk calculation.",
			ConstLabels: constLabels,
		}),
		bulkDuration: factory.histogram(prometheus.HistogramOpts{
			Name:        "tax_bulk_duration_seconds",
			Help:        "Bulk batch wall time.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		cacheRequests: factory.counterVec(prometheus.CounterOpts{
			Name:        "tax_result_cache_requests_total",
			Help:        "Result cache lookups by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		engineRoutings: factory.counterVec(prometheus.CounterOpts{
			Name:        "tax_engine_routings_total",
			Help:        "Category classifications routed to each engine type.",
			ConstLabels: constLabels,
		}, []string{"engine"}),
	}

	return m
}

func (m *CalculationMetrics) ObserveCalculation(engine, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(engine, outcome).Inc()
	m.calcDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

func (m *CalculationMetrics) ObserveBulk(items int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.bulkBatches.Inc()
	m.bulkItems.Add(float64(items))
	m.bulkDuration.Observe(elapsed.Seconds())
}

func (m *CalculationMetrics) ObserveCacheRequest(outcome string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(outcome).Inc()
}

func (m *CalculationMetrics) ObserveRouting(engine string) {
	if m == nil {
		return
	}
	m.engineRoutings.WithLabelValues(engine).Inc()
}

// promauto-style factory that tolerates duplicate registration in tests.
type factory struct {
	registerer prometheus.Registerer
}

func promauto(registerer prometheus.Registerer) factory {
	return factory{registerer: registerer}
}

func (f factory) counter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	f.register(c)
	return c
}

func (f factory) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.register(c)
	return c
}

func (f factory) histogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	f.register(h)
	return h
}

func (f factory) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.register(h)
	return h
}

func (f factory) register(collector prometheus.Collector) {
	if err := f.registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
	}
}
