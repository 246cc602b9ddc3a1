// Package metrics exports result engine activity to Prometheus.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padraicbc/oresults/models"
)

// Recorder implements results.CacheObserver and results.RankingObserver.
type Recorder struct {
	reg *prometheus.Registry

	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	invalidated *prometheus.CounterVec
	rankings    *prometheus.CounterVec
	rankingTime *prometheus.HistogramVec
	members     *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry, together with the
// process and Go runtime collectors.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oresults", Name: "cache_hits_total",
			Help: "Memoized validation and score lookups served from the cache.",
		}, []string{"strategy"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oresults", Name: "cache_misses_total",
			Help: "Validation and score lookups that had to be computed.",
		}, []string{"strategy"}),
		invalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oresults", Name: "cache_invalidations_total",
			Help: "Cache entries dropped after data changes, by subject kind.",
		}, []string{"kind"}),
		rankings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oresults", Name: "ranking_computations_total",
			Help: "Full ranking passes.",
		}, []string{"rankable"}),
		rankingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oresults", Name: "ranking_duration_seconds",
			Help:    "Time spent in a full ranking pass.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"rankable"}),
		members: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oresults", Name: "ranking_members",
			Help: "Members kept by the latest pass of a ranking.",
		}, []string{"ranking"}),
	}
	r.reg.MustRegister(
		r.hits, r.misses, r.invalidated, r.rankings, r.rankingTime, r.members,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry is the registry the recorder publishes to.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Recorder) CacheHit(strategy string)  { r.hits.WithLabelValues(strategy).Inc() }
func (r *Recorder) CacheMiss(strategy string) { r.misses.WithLabelValues(strategy).Inc() }

func (r *Recorder) CacheInvalidated(kind models.Kind) {
	r.invalidated.WithLabelValues(string(kind)).Inc()
}

// RankingComputed labels counters by the rankable type (course, category,
// open) so cardinality does not grow with the number of courses.
func (r *Recorder) RankingComputed(key string, members int, took time.Duration) {
	kind := key
	if i := strings.IndexByte(key, '/'); i >= 0 {
		kind = key[:i]
	}
	r.rankings.WithLabelValues(kind).Inc()
	r.rankingTime.WithLabelValues(kind).Observe(took.Seconds())
	r.members.WithLabelValues(key).Set(float64(members))
}
