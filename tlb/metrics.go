package tlb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindPage  = "page"
	kindRange = "range"
	kindAll   = "all"
)

var (
	metricInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mman",
		Subsystem: "tlb",
		Name:      "invalidations_total",
		Help:      "Total number of translation cache invalidation calls, by kind (page, range, all)",
	}, []string{"kind"})
	metricDroppedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mman",
		Subsystem: "tlb",
		Name:      "dropped_entries_total",
		Help:      "Total number of cached translations dropped by invalidation",
	})
)
