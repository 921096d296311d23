package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics метрики рендера
type Metrics struct {
	renders   *prometheus.CounterVec   // engine, outcome
	duration  *prometheus.HistogramVec // engine
	cacheHits *prometheus.CounterVec   // engine
	inflight  prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "renders_total",
			Help:      "Число запросов рендера по движку и результату.",
		}, []string{"engine", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "terrain",
			Name:      "render_duration_seconds",
			Help:      "Время рендера без учёта попаданий в кеш.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"engine"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "render_cache_hits_total",
			Help:      "Рендеры, отданные из кеша.",
		}, []string{"engine"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Name:      "renders_inflight",
			Help:      "Рендеры, выполняющиеся прямо сейчас.",
		}),
	}

	reg.MustRegister(m.renders, m.duration, m.cacheHits, m.inflight)
	return m
}
