// Package metrics exposes Prometheus counters for compliance workflow
// transitions and HTTP traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// transitionsTotal counts state transitions by entity and edge
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_transitions_total",
		Help: "Total workflow state transitions by entity, from and to status",
	}, []string{"entity", "from", "to"})

	// findingsTotal counts finding lifecycle events
	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_findings_total",
		Help: "Total finding lifecycle events by severity and event",
	}, []string{"severity", "event"})

	// runsSubmittedTotal counts submitted compliance runs by colour
	runsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_runs_submitted_total",
		Help: "Total compliance runs submitted by resulting status colour",
	}, []string{"color"})

	// actionsCreatedTotal counts actions spawned by run submission
	actionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compliance_actions_created_total",
		Help: "Total compliance actions spawned by run submission",
	})

	// documentReviewDQS tracks document quality scores
	documentReviewDQS = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compliance_document_review_dqs_percent",
		Help:    "Document quality score of submitted reviews",
		Buckets: []float64{10, 25, 50, 60, 70, 80, 90, 100},
	}, []string{"decision"})

	// httpRequestsTotal counts HTTP requests
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// httpRequestDuration tracks HTTP latency
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compliance_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// 不符合项事件
const (
	FindingCreated    = "created"
	FindingSuperseded = "superseded"
	FindingClosed     = "closed"
)

// RecordTransition 记录一次状态流转
func RecordTransition(entity, from, to string) {
	transitionsTotal.WithLabelValues(entity, from, to).Inc()
}

// RecordFinding 记录不符合项事件
func RecordFinding(severity, event string) {
	findingsTotal.WithLabelValues(severity, event).Inc()
}

// RecordRunSubmitted 记录周期检查提交结果
func RecordRunSubmitted(color string, actions int) {
	runsSubmittedTotal.WithLabelValues(color).Inc()
	actionsCreatedTotal.Add(float64(actions))
}

// RecordDocumentReview 记录文档审核得分
func RecordDocumentReview(decision string, dqs int) {
	documentReviewDQS.WithLabelValues(decision).Observe(float64(dqs))
}

// RecordHTTP 记录HTTP请求
func RecordHTTP(method, route, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
