package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStater is implemented by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(*pgxpool.Stat) float64
}

// PoolStatsCollector implements prometheus.Collector for pgxpool connection metrics.
type PoolStatsCollector struct {
	pool    PoolStater
	service string
	metrics []poolMetric
}

// NewPoolStatsCollector creates a Prometheus collector that exports pgxpool
// connection pool statistics.
func NewPoolStatsCollector(pool PoolStater, service string) *PoolStatsCollector {
	gauge := func(name, help string, fn func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.GaugeValue, fn}
	}
	counter := func(name, help string, fn func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.CounterValue, fn}
	}

	return &PoolStatsCollector{
		pool:    pool,
		service: service,
		metrics: []poolMetric{
			gauge("db_pool_acquired_connections", "Number of currently acquired connections",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("db_pool_idle_connections", "Number of currently idle connections",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			gauge("db_pool_total_connections", "Total number of connections in the pool",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			gauge("db_pool_max_connections", "Maximum number of connections allowed",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			gauge("db_pool_constructing_connections", "Number of connections currently being constructed",
				func(s *pgxpool.Stat) float64 { return float64(s.ConstructingConns()) }),
			counter("db_pool_acquire_count_total", "Total number of connection acquires",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			counter("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections in seconds",
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			counter("db_pool_canceled_acquire_count_total", "Total number of canceled connection acquires",
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			counter("db_pool_empty_acquire_count_total", "Total number of acquires that had to wait for a connection",
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			counter("db_pool_new_connections_total", "Total number of new connections created",
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }),
			counter("db_pool_max_lifetime_destroy_total", "Total connections destroyed due to max lifetime",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxLifetimeDestroyCount()) }),
			counter("db_pool_max_idle_destroy_total", "Total connections destroyed due to max idle time",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxIdleDestroyCount()) }),
		},
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect reads current pool statistics and sends them as Prometheus metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(stat), c.service)
	}
}

// RegisterPoolMetrics registers a pool collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool PoolStater, service string) error {
	return reg.Register(NewPoolStatsCollector(pool, service))
}
