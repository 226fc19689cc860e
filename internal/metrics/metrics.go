// Package metrics はリレーサービスのPrometheusメトリクスを定義する。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayRequestsTotal はリレーしたリクエスト数。resultは
	// origin_error / origin_passthrough / purged / purge_error のいずれか。
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purge_relay_requests_total",
			Help: "Total number of relayed requests by result",
		},
		[]string{"result"},
	)

	// OriginRequestDuration はオリジンへの転送にかかった時間。
	OriginRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purge_relay_origin_duration_seconds",
			Help:    "Origin round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PurgeTotal はパージ試行数。outcomeは succeeded / api_failure / exception、
	// triggerは relay / manual。
	PurgeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purge_relay_purge_total",
			Help: "Total number of cache purge attempts by outcome",
		},
		[]string{"outcome", "trigger"},
	)

	// PurgeDuration はパージAPI呼び出しにかかった時間。
	PurgeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purge_relay_purge_duration_seconds",
			Help:    "Cache purge API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// AuditWriteErrorsTotal は監査ログの書き込み失敗数。
	AuditWriteErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purge_relay_audit_write_errors_total",
			Help: "Total number of audit events that could not be persisted",
		},
	)
)
