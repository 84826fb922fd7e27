package vmmap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricSplits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "mman",
	Subsystem: "vmmap",
	Name:      "area_splits_total",
	Help:      "Total number of areas split in two by a removal",
})
