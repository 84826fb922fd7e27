package mman

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMmapCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mman",
		Name:      "mmap_calls_total",
		Help:      "Total number of mmap requests, by result (OK or errno name)",
	}, []string{"result"})
	metricMunmapCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mman",
		Name:      "munmap_calls_total",
		Help:      "Total number of munmap requests, by result (OK or errno name)",
	}, []string{"result"})
	metricMappedPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mman",
		Name:      "mmap_reserved_pages_total",
		Help:      "Total number of pages reserved by successful mmap requests",
	})
)
