package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/snarg/mallok/internal/task"
)

// QueueStats provides the collector access to worker pool state.
type QueueStats interface {
	Pending() int
	InFlight() int
}

// LiveTasks reports how many tasks the status map holds per state.
type LiveTasks interface {
	Counts() map[task.Status]int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	pool  *pgxpool.Pool
	queue QueueStats
	live  LiveTasks

	queuePending    *prometheus.Desc
	queueInFlight   *prometheus.Desc
	dbTotalConns    *prometheus.Desc
	dbAcquiredConns *prometheus.Desc
	dbIdleConns     *prometheus.Desc
	liveTasks       *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// pool and queue may be nil; their gauges then report 0. A nil live source
// exports no per-status series.
func NewCollector(pool *pgxpool.Pool, queue QueueStats, live LiveTasks) *Collector {
	return &Collector{
		pool:  pool,
		queue: queue,
		live:  live,
		queuePending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "pending"),
			"Tasks waiting for a worker.",
			nil, nil,
		),
		queueInFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "in_flight"),
			"Tasks currently being processed.",
			nil, nil,
		),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.",
			nil, nil,
		),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.",
			nil, nil,
		),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.",
			nil, nil,
		),
		liveTasks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tasks", "live"),
			"Tasks held in the in-process status map, by status.",
			[]string{"status"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queuePending
	ch <- c.queueInFlight
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
	ch <- c.liveTasks
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var pending, inFlight float64
	if c.queue != nil {
		pending = float64(c.queue.Pending())
		inFlight = float64(c.queue.InFlight())
	}
	ch <- prometheus.MustNewConstMetric(c.queuePending, prometheus.GaugeValue, pending)
	ch <- prometheus.MustNewConstMetric(c.queueInFlight, prometheus.GaugeValue, inFlight)

	var total, acquired, idle float64
	if c.pool != nil {
		stat := c.pool.Stat()
		total = float64(stat.TotalConns())
		acquired = float64(stat.AcquiredConns())
		idle = float64(stat.IdleConns())
	}
	ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, total)
	ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, acquired)
	ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, idle)

	if c.live != nil {
		for status, n := range c.live.Counts() {
			ch <- prometheus.MustNewConstMetric(c.liveTasks, prometheus.GaugeValue, float64(n), string(status))
		}
	}
}
