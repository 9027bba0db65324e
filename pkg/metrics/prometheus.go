package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	registry = newRegistry()

	vectorsMu  sync.Mutex
	histograms = map[string]*labelledVec[*prometheus.HistogramVec]{}
	counters   = map[string]*labelledVec[*prometheus.CounterVec]{}
	gauges     = map[string]*labelledVec[*prometheus.GaugeVec]{}
)

// labelledVec pins the label names a metric was first registered with.
type labelledVec[V any] struct {
	vec    V
	labels []string
}

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return r
}

// Handler serves the prometheus exposition of every metric recorded through this package.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func Registry() prometheus.Gatherer {
	return registry
}

func observeHistogram(name string, seconds float64, tags []string) {
	keys, values := splitTags(tags)
	vectorsMu.Lock()
	h, ok := histograms[name]
	if !ok {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    promName(name) + "_seconds",
			Buckets: prometheus.DefBuckets,
		}, keys)
		if err := registry.Register(vec); err != nil {
			vectorsMu.Unlock()
			log.Warn().Err(err).Str("metric", name).Msg("unable to register histogram")
			return
		}
		h = &labelledVec[*prometheus.HistogramVec]{vec: vec, labels: keys}
		histograms[name] = h
	}
	vectorsMu.Unlock()
	if !sameLabels(h.labels, keys) {
		return
	}
	h.vec.WithLabelValues(values...).Observe(seconds)
}

func addCounter(name string, value float64, tags []string) {
	keys, values := splitTags(tags)
	vectorsMu.Lock()
	c, ok := counters[name]
	if !ok {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: promName(name)}, keys)
		if err := registry.Register(vec); err != nil {
			vectorsMu.Unlock()
			log.Warn().Err(err).Str("metric", name).Msg("unable to register counter")
			return
		}
		c = &labelledVec[*prometheus.CounterVec]{vec: vec, labels: keys}
		counters[name] = c
	}
	vectorsMu.Unlock()
	if !sameLabels(c.labels, keys) || value < 0 {
		return
	}
	c.vec.WithLabelValues(values...).Add(value)
}

func setGauge(name string, value float64, tags []string) {
	keys, values := splitTags(tags)
	vectorsMu.Lock()
	g, ok := gauges[name]
	if !ok {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: promName(name)}, keys)
		if err := registry.Register(vec); err != nil {
			vectorsMu.Unlock()
			log.Warn().Err(err).Str("metric", name).Msg("unable to register gauge")
			return
		}
		g = &labelledVec[*prometheus.GaugeVec]{vec: vec, labels: keys}
		gauges[name] = g
	}
	vectorsMu.Unlock()
	if !sameLabels(g.labels, keys) {
		return
	}
	g.vec.WithLabelValues(values...).Set(value)
}

// splitTags turns "key:value" tags into sorted label names and matching values.
// A tag without a colon becomes a label with an empty value.
func splitTags(tags []string) ([]string, []string) {
	pairs := make(map[string]string, len(tags))
	for _, tag := range tags {
		key, value, _ := strings.Cut(tag, ":")
		pairs[promName(key)] = value
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = pairs[k]
	}
	return keys, values
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
