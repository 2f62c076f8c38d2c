package kbucket

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 路由表的 Prometheus 指标
//
// 所有方法对 nil 接收者安全，未启用指标时路由表直接持有 nil。
type Metrics struct {
	peers         prometheus.Gauge
	saturated     prometheus.Gauge
	inserts       *prometheus.CounterVec
	evictions     prometheus.Counter
	rejections    prometheus.Counter
	removals      prometheus.Counter
	rebuilds      prometheus.Counter
	searchResults prometheus.Histogram
}

// 插入策略标签
const (
	policyLive = "live"
	policyAdd  = "add"
)

// NewMetrics 创建指标并注册到 reg
//
// reg 为 nil 时只创建不注册（便于测试直接读取）。
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "peers",
			Help:      "Number of peers held by the routing table.",
		}),
		saturated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "saturated_buckets",
			Help:      "Number of buckets at full capacity.",
		}),
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "inserts_total",
			Help:      "Peers inserted into a bucket, by insertion policy.",
		}, []string{"policy"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "evictions_total",
			Help:      "Peers evicted from a full bucket by a confirmed contact.",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "rejections_total",
			Help:      "Passive adds refused because the bucket was full.",
		}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "removals_total",
			Help:      "Peers removed by the caller or dropped by a rebuild.",
		}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "rebuilds_total",
			Help:      "Base node reassignments that rebuilt the table.",
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "search_results",
			Help:      "Number of peers returned by table searches.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 20, 32, 64},
		}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.peers, m.saturated, m.inserts, m.evictions,
		m.rejections, m.removals, m.rebuilds, m.searchResults,
	}
}

func (m *Metrics) setSize(peers, saturated int) {
	if m == nil {
		return
	}
	m.peers.Set(float64(peers))
	m.saturated.Set(float64(saturated))
}

func (m *Metrics) inserted(policy string) {
	if m == nil {
		return
	}
	m.inserts.WithLabelValues(policy).Inc()
}

func (m *Metrics) evicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

func (m *Metrics) removed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.removals.Add(float64(n))
}

func (m *Metrics) rebuilt() {
	if m == nil {
		return
	}
	m.rebuilds.Inc()
}

func (m *Metrics) searched(n int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(n))
}
