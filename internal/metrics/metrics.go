package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 打卡记录写入计数
	HabitLogsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_logs_recorded_total",
			Help: "Total number of habit logs created",
		},
		[]string{"completed"},
	)

	// 认证结果计数
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by action and outcome",
		},
		[]string{"action", "outcome"}, // action: register, login; outcome: success, failure
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// IncrementHabitLogs 增加打卡计数
func IncrementHabitLogs(completed bool) {
	HabitLogsRecorded.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// IncrementAuthAttempt 增加认证计数
func IncrementAuthAttempt(action string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	AuthAttempts.WithLabelValues(action, outcome).Inc()
}
