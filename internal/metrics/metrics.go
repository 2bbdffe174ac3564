// Package metrics holds the Prometheus collectors for the dashboard cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_cache_reads_total",
		Help: "Dashboard cache reads by result (hit, miss, corrupt)",
	}, []string{"result"})

	CacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_cache_writes_total",
		Help: "Dashboard cache writes by result",
	}, []string{"result"})

	DashboardLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_dashboard_loads_total",
		Help: "Dashboard loads by source (cache, network) and result",
	}, []string{"source", "result"})

	GatewayFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldops_gateway_fetch_duration_seconds",
		Help:    "Time for one four-way remote fetch to resolve",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	IdentityPurges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldops_identity_purges_total",
		Help: "Cache purges triggered by an identity switch or sign-out",
	})
)

// Result labels shared by the counters above.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultCorrupt = "corrupt"
	ResultOK      = "ok"
	ResultError   = "error"
)
