package telemetry

import "github.com/prometheus/client_golang/prometheus"

var RateLimitRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Total number of requests rejected by the rate limiter, by scope.",
	},
	[]string{"scope"},
)

var RateLimitCheckDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gatekeeper",
		Subsystem: "ratelimit",
		Name:      "check_duration_seconds",
		Help:      "Time spent evaluating the Redis sliding-window rate limit.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	},
	[]string{"scope"},
)

var ResultCacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "resultcache",
		Name:      "hits_total",
		Help:      "Total number of single-flight cache hits, by cache name.",
	},
	[]string{"cache"},
)

var ResultCacheMissesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "resultcache",
		Name:      "misses_total",
		Help:      "Total number of single-flight cache misses, by cache name.",
	},
	[]string{"cache"},
)

var ProxyCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gatekeeper",
		Subsystem: "proxy",
		Name:      "call_duration_seconds",
		Help:      "Duration of coordinator proxy calls, by message kind and outcome.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"message_kind", "outcome"},
)

var ArtifactResolutionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "artifact",
		Name:      "resolution_total",
		Help:      "Total number of replay artifact resolutions, by source and outcome.",
	},
	[]string{"source", "outcome"},
)

var SpectatorSessionsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gatekeeper",
		Subsystem: "spectator",
		Name:      "sessions_active",
		Help:      "Number of currently open live-match SSE streams.",
	},
)

var SpectatorBotsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gatekeeper",
		Subsystem: "spectator",
		Name:      "bots_active",
		Help:      "Number of bots currently holding a live-match spectate slot, pending auto-leave.",
	},
)

var CustomMatchesActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gatekeeper",
		Subsystem: "custommatch",
		Name:      "parties_active",
		Help:      "Number of currently open custom-match parties.",
	},
)

// All returns gatekeeper-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		RateLimitRejectionsTotal,
		RateLimitCheckDuration,
		ResultCacheHitsTotal,
		ResultCacheMissesTotal,
		ProxyCallDuration,
		ArtifactResolutionTotal,
		SpectatorSessionsActive,
		SpectatorBotsActive,
		CustomMatchesActive,
	}
}
