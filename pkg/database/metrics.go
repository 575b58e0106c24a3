package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/event"
)

// PoolStatsCollector implements prometheus.Collector for pgxpool connection metrics.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string

	acquiredConns   *prometheus.Desc
	idleConns       *prometheus.Desc
	totalConns      *prometheus.Desc
	maxConns        *prometheus.Desc
	acquireCount    *prometheus.Desc
	acquireDuration *prometheus.Desc
	emptyAcquires   *prometheus.Desc
}

// NewPoolStatsCollector creates a Prometheus collector that exports pgxpool
// statistics under the db_pool_ prefix.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("db_pool_"+name, help, labels, nil)
	}
	return &PoolStatsCollector{
		pool:            pool,
		service:         service,
		acquiredConns:   desc("acquired_connections", "Number of currently acquired connections"),
		idleConns:       desc("idle_connections", "Number of currently idle connections"),
		totalConns:      desc("total_connections", "Total number of connections in the pool"),
		maxConns:        desc("max_connections", "Maximum number of connections allowed"),
		acquireCount:    desc("acquire_count_total", "Total number of connection acquires"),
		acquireDuration: desc("acquire_duration_seconds_total", "Total time spent acquiring connections in seconds"),
		emptyAcquires:   desc("empty_acquire_count_total", "Total number of acquires that had to wait for a connection"),
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.acquireDuration
	ch <- c.emptyAcquires
}

// Collect reads current pool statistics and sends them as Prometheus metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()

	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stat.IdleConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stat.TotalConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(stat.AcquireCount()), c.service)
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, stat.AcquireDuration().Seconds(), c.service)
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(stat.EmptyAcquireCount()), c.service)
}

// RegisterPoolMetrics creates and registers a pgxpool metrics collector with
// the default Prometheus registry.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	prometheus.MustRegister(NewPoolStatsCollector(pool, service))
}

// MongoPoolMetrics tracks the mongo-driver connection pool through its
// event monitor. It is a prometheus.Collector.
type MongoPoolMetrics struct {
	open             prometheus.Gauge
	inUse            prometheus.Gauge
	checkoutFailures prometheus.Counter
}

// NewMongoPoolMetrics creates pool metrics labelled with the service name.
func NewMongoPoolMetrics(service string) *MongoPoolMetrics {
	labels := prometheus.Labels{"service": service}
	return &MongoPoolMetrics{
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mongo_pool_open_connections",
			Help:        "Number of open connections in the MongoDB pool",
			ConstLabels: labels,
		}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mongo_pool_in_use_connections",
			Help:        "Number of MongoDB connections checked out",
			ConstLabels: labels,
		}),
		checkoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mongo_pool_checkout_failures_total",
			Help:        "Total number of failed connection checkouts",
			ConstLabels: labels,
		}),
	}
}

// Monitor returns the pool monitor to pass to NewMongoClient.
func (m *MongoPoolMetrics) Monitor() *event.PoolMonitor {
	return &event.PoolMonitor{Event: m.observe}
}

func (m *MongoPoolMetrics) observe(evt *event.PoolEvent) {
	switch evt.Type {
	case event.ConnectionCreated:
		m.open.Inc()
	case event.ConnectionClosed:
		m.open.Dec()
	case event.GetSucceeded:
		m.inUse.Inc()
	case event.ConnectionReturned:
		m.inUse.Dec()
	case event.GetFailed:
		m.checkoutFailures.Inc()
	}
}

// Describe implements prometheus.Collector.
func (m *MongoPoolMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.open.Describe(ch)
	m.inUse.Describe(ch)
	m.checkoutFailures.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *MongoPoolMetrics) Collect(ch chan<- prometheus.Metric) {
	m.open.Collect(ch)
	m.inUse.Collect(ch)
	m.checkoutFailures.Collect(ch)
}
