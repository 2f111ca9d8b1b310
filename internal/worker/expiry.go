// Package worker 定时任务
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"club-manager/backend/internal/dto"
	"club-manager/backend/pkg/metrics"
)

// ExpiringLister 即将到期订阅的数据来源（SubscriptionService 满足该接口）
type ExpiringLister interface {
	ExpiringSoon(ctx context.Context) ([]dto.SubscriptionResponse, error)
}

// ExpiryScan 扫描即将到期的订阅，记录日志并刷新 Gauge
type ExpiryScan struct {
	source  ExpiringLister
	timeout time.Duration
	logger  *zap.Logger
}

// NewExpiryScan 创建到期扫描任务
func NewExpiryScan(source ExpiringLister, logger *zap.Logger) *ExpiryScan {
	return &ExpiryScan{source: source, timeout: 5 * time.Minute, logger: logger}
}

// Run 执行一次扫描，返回即将到期的订阅数
func (j *ExpiryScan) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	subs, err := j.source.ExpiringSoon(ctx)
	if err != nil {
		j.logger.Error("扫描即将到期订阅失败", zap.Error(err))
		return 0, err
	}

	for _, s := range subs {
		fields := []zap.Field{zap.String("subscription_id", s.ID)}
		if s.User != nil {
			fields = append(fields, zap.String("user", s.User.FullName), zap.String("phone", s.User.Phone))
		}
		if s.Division != nil {
			fields = append(fields, zap.String("division", s.Division.Name))
		}
		if s.LatestEndDate != nil {
			fields = append(fields, zap.String("end_date", *s.LatestEndDate))
		}
		fields = append(fields, zap.Float64("total_due", s.TotalDue))
		j.logger.Info("订阅即将到期", fields...)
	}

	metrics.ExpiringSubscriptions.Set(float64(len(subs)))
	j.logger.Info("到期扫描完成", zap.Int("count", len(subs)))
	return len(subs), nil
}

// Func 供 cron 调度的无参函数
func (j *ExpiryScan) Func(ctx context.Context) func() {
	return func() {
		_, _ = j.Run(ctx)
	}
}
