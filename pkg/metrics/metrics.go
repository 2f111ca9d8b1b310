// Package metrics Prometheus 指标定义
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "club"

var (
	// HTTPRequests 请求计数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration 请求耗时
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ReservationsCreated 新建预约数（按类型：single / weekly / update）
	ReservationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_created_total",
		Help:      "Reservations created by wizard kind.",
	}, []string{"kind"})

	// SubscriptionInvoices 订阅发票（按动作）
	SubscriptionInvoices = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_invoices_total",
		Help:      "Subscription invoices by action.",
	}, []string{"action"})

	// PaymentsApplied 已入账金额
	PaymentsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_payments_amount_total",
		Help:      "Sum of amounts applied to subscription periods.",
	})

	// AttendanceRecords 训练考勤记录数
	AttendanceRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "training_session_records_total",
		Help:      "Training session records created.",
	})

	// OTPRequests 验证码请求（按结果）
	OTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_requests_total",
		Help:      "One-time code sends and checks by outcome.",
	}, []string{"op", "outcome"})

	// ExpiringSubscriptions 即将到期的订阅数（由 worker 定时刷新）
	ExpiringSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscriptions_expiring_soon",
		Help:      "Subscriptions whose latest period ends within the configured window.",
	})
)

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
