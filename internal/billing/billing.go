// Package billing 金额计算：付款分摊、增值税拆分
package billing

import (
	"errors"
	"math"

	"club-manager/backend/internal/model"
)

var (
	// ErrExceedsDue 付款金额超过未付总额
	ErrExceedsDue = errors.New("付款金额超过未付总额")
	// ErrNothingDue 没有未付金额
	ErrNothingDue = errors.New("该订阅没有未付金额")
)

// Round2 四舍五入到分
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TotalDue 所有周期的未付总额
func TotalDue(periods []model.SubscriptionPeriod) float64 {
	var due float64
	for i := range periods {
		due += periods[i].Due()
	}
	return Round2(due)
}

// Allocate 按顺序（调用方保证最早的周期在前）把 amount 分摊到未付清的周期：
// 先付清较早的周期再处理下一个，金额用完或全部付清即停止。
// 直接修改 periods 中的 PaidAmount，返回实际入账金额与被修改的下标。
// 不校验 amount 是否超过未付总额，由调用方先用 CheckPayment 拒绝。
func Allocate(periods []model.SubscriptionPeriod, amount float64) (applied float64, touched []int) {
	remaining := Round2(amount)
	for i := range periods {
		if remaining <= 0 {
			break
		}
		due := Round2(periods[i].Due())
		if due <= 0 {
			continue
		}
		portion := due
		if remaining < due {
			portion = remaining
		}
		periods[i].PaidAmount = Round2(periods[i].PaidAmount + portion)
		applied = Round2(applied + portion)
		remaining = Round2(remaining - portion)
		touched = append(touched, i)
	}
	return applied, touched
}

// CheckPayment 付款前置校验
func CheckPayment(periods []model.SubscriptionPeriod, amount float64) error {
	due := TotalDue(periods)
	if due <= 0 {
		return ErrNothingDue
	}
	if Round2(amount) > due {
		return ErrExceedsDue
	}
	return nil
}

// VATBreakdown 含税价拆分
type VATBreakdown struct {
	PriceBeforeVAT float64 `json:"price_before_vat"`
	VAT            float64 `json:"vat"`
	Total          float64 `json:"total"`
}

// SplitVAT 从含税价反推税前价与税额；税前价四舍五入到分，税额取差值
func SplitVAT(gross, rate float64) VATBreakdown {
	before := Round2(gross / (1 + rate))
	return VATBreakdown{
		PriceBeforeVAT: before,
		VAT:            Round2(gross - before),
		Total:          Round2(gross),
	}
}
