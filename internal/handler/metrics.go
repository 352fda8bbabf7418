package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/auth"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_portal_http_requests_total",
		Help: "Total number of handled HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_portal_http_request_duration_seconds",
		Help:    "Histogram of HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// authEvents 按操作和结果统计，result 为 success 或者错误码
	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_portal_auth_events_total",
		Help: "Total number of authentication events",
	}, []string{"event", "result"})
)

func recordAuthEvent(event string, err error) {
	result := "success"
	if err != nil {
		result = auth.ErrorCode(err)
		if result == "" {
			result = "internal"
		}
	}
	authEvents.WithLabelValues(event, result).Inc()
}
