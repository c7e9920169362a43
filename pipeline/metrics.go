package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 管线的 Prometheus 指标
type Metrics struct {
	queriesTotal  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	noMatchTotal  prometheus.Counter
}

// newMetrics 注册管线指标。registerer 为 nil 时使用独立注册表，
// 避免嵌入方的默认注册表产生重复注册冲突。
func newMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryflow",
			Name:      "queries_total",
			Help:      "Processed queries by language, intent and domain.",
		}, []string{"language", "intent", "domain"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "queryflow",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage processing latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		noMatchTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "queryflow",
			Name:      "no_relevant_match_total",
			Help:      "Queries every retrieval tier rejected.",
		}),
	}
}

func (m *Metrics) observeQuery(language, intent, domain string) {
	m.queriesTotal.WithLabelValues(language, intent, domain).Inc()
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
