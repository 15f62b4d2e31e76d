package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatter exposes connection pool statistics.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// PoolCollector reports pgxpool statistics at scrape time.
type PoolCollector struct {
	pool PoolStatter

	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	emptyAcquire *prometheus.Desc
	canceled     *prometheus.Desc
	waitSeconds  *prometheus.Desc
}

// NewPoolCollector creates a collector over p.
func NewPoolCollector(p PoolStatter) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", name), help, nil, nil)
	}
	return &PoolCollector{
		pool:         p,
		acquired:     desc("acquired_conns", "Connections currently borrowed"),
		idle:         desc("idle_conns", "Idle connections"),
		total:        desc("total_conns", "Open connections"),
		max:          desc("max_conns", "Configured maximum connections"),
		acquireCount: desc("acquires_total", "Successful acquisitions"),
		emptyAcquire: desc("empty_acquires_total", "Acquisitions that had to wait for a connection"),
		canceled:     desc("canceled_acquires_total", "Acquisitions canceled by context"),
		waitSeconds:  desc("acquire_wait_seconds_total", "Cumulative time spent waiting for a connection"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
	ch <- c.canceled
	ch <- c.waitSeconds
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(s.CanceledAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
