// Package metrics 暴露 Prometheus 指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标集合；nil 接收者上的方法均为空操作
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	solverCalls   *prometheus.CounterVec
	solverLatency prometheus.Histogram
	scheduleRuns  *prometheus.CounterVec
	allocations   *prometheus.CounterVec
}

// New 创建独立 registry 并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rosterpro",
			Name:      "http_requests_total",
			Help:      "HTTP 请求数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rosterpro",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		solverCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rosterpro",
			Name:      "solver_calls_total",
			Help:      "外部求解器调用次数，按结果分类",
		}, []string{"outcome"}),
		solverLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rosterpro",
			Name:      "solver_call_duration_seconds",
			Help:      "外部求解器调用耗时",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		scheduleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rosterpro",
			Name:      "schedule_runs_total",
			Help:      "排班运行记录数，按状态分类",
		}, []string{"status"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rosterpro",
			Name:      "allocations_written_total",
			Help:      "写入的排班记录数，按来源分类",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration,
		m.solverCalls, m.solverLatency,
		m.scheduleRuns, m.allocations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层 registry（测试使用）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSolver 记录一次求解器调用；outcome 取 ok / rejected / unavailable / invalid
func (m *Metrics) ObserveSolver(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solverCalls.WithLabelValues(outcome).Inc()
	m.solverLatency.Observe(elapsed.Seconds())
}

// IncScheduleRun 记录一次运行记录
func (m *Metrics) IncScheduleRun(status string) {
	if m == nil {
		return
	}
	m.scheduleRuns.WithLabelValues(status).Inc()
}

// AddAllocations 记录写入的排班记录数
func (m *Metrics) AddAllocations(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.allocations.WithLabelValues(source).Add(float64(n))
}
