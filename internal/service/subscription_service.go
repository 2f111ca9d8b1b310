package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-manager/backend/config"
	"club-manager/backend/internal/billing"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
	pkgerrors "club-manager/backend/pkg/errors"
	"club-manager/backend/pkg/metrics"
)

// ── 订阅模块业务错误 ──

var (
	ErrSubscriptionNotFound    = errors.New("订阅不存在")
	ErrSubscriptionExists      = errors.New("该顾客已订阅此训练班")
	ErrInitialPaidExceedsPrice = errors.New("首付金额不能超过周期总价")
	ErrExtendStartTooEarly     = errors.New("续订开始日期不能早于当前周期结束日")
	ErrInvoiceNotFound         = errors.New("发票不存在")
	ErrPaymentExceedsDue       = billing.ErrExceedsDue
	ErrNothingDue              = billing.ErrNothingDue
)

const (
	defaultExpiringSoonDays  = 3
	defaultAttendanceHistory = 30
)

// SubscriptionService 订阅业务接口
type SubscriptionService interface {
	Create(ctx context.Context, pol policy.Policy, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionMutationResponse, error)
	// Extend 追加计费周期
	Extend(ctx context.Context, pol policy.Policy, id string, req *dto.ExtendSubscriptionRequest) (*dto.SubscriptionMutationResponse, error)
	// Pay 付款，按最早的周期优先分摊
	Pay(ctx context.Context, pol policy.Policy, id string, req *dto.PaymentRequest) (*dto.SubscriptionMutationResponse, error)

	Search(ctx context.Context, req *dto.SubscriptionSearchRequest) ([]dto.SubscriptionResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	Delete(ctx context.Context, id string) error

	ListInvoices(ctx context.Context, id string) ([]dto.InvoiceResponse, error)
	InvoiceDocument(ctx context.Context, invoiceID string) (*dto.InvoiceDocumentResponse, error)
	AttendanceHistory(ctx context.Context, id string) (*dto.AttendanceHistoryResponse, error)

	// ExpiringSoon 最近周期在预警天数内到期的订阅（定时任务使用）
	ExpiringSoon(ctx context.Context) ([]dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	cfg    *config.BusinessConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewSubscriptionService 创建 SubscriptionService 实例
func NewSubscriptionService(cfg *config.BusinessConfig, repo *repository.Repository, logger *zap.Logger) SubscriptionService {
	return &subscriptionService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *subscriptionService) Create(ctx context.Context, pol policy.Policy, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionMutationResponse, error) {
	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !user.IsCustomer() {
		return nil, ErrCustomerNotFound
	}

	division, err := s.activeDivision(ctx, req.DivisionID)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.Subscription.ExistsForUserDivision(ctx, user.UserID, division.DivisionID)
	if err != nil {
		s.logger.Error("检查订阅是否存在失败", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrSubscriptionExists
	}

	start, err := dateutil.ParseDate(req.StartDate)
	if err != nil {
		return nil, ErrInvalidDay
	}
	period, err := s.newPeriod(pol, division, start, req.Months, req.MonthPrice, req.InitialPaid)
	if err != nil {
		return nil, err
	}

	creator := pol.UserID()
	sub := &model.Subscription{UserID: &user.UserID, DivisionID: &division.DivisionID, CreatedBy: &creator}
	invoice := s.newInvoice(pol, model.InvoiceActionNew, period.Price, period.PaidAmount)

	if err := s.repo.Subscription.CreateWithPeriod(ctx, sub, period, invoice); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrSubscriptionExists
		}
		s.logger.Error("创建订阅失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("订阅已创建",
		zap.String("id", sub.SubscriptionID),
		zap.String("division_id", division.DivisionID),
		zap.Float64("price", period.Price),
	)
	return s.mutationResponse(ctx, sub.SubscriptionID, invoice)
}

// ────────────────────── Extend ──────────────────────

func (s *subscriptionService) Extend(ctx context.Context, pol policy.Policy, id string, req *dto.ExtendSubscriptionRequest) (*dto.SubscriptionMutationResponse, error) {
	sub, err := s.getSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.DivisionID == nil {
		return nil, ErrDivisionNotFound
	}
	division, err := s.activeDivision(ctx, *sub.DivisionID)
	if err != nil {
		return nil, err
	}

	today := dateutil.Today(s.now(), s.cfg.Location())
	latestEnd := latestEndDate(sub.Periods)

	var start time.Time
	if req.StartDate == "" {
		start = today
		if latestEnd != nil && latestEnd.After(today) {
			start = *latestEnd
		}
	} else {
		if start, err = dateutil.ParseDate(req.StartDate); err != nil {
			return nil, ErrInvalidDay
		}
		if latestEnd != nil && start.Before(*latestEnd) {
			return nil, ErrExtendStartTooEarly
		}
	}

	period, err := s.newPeriod(pol, division, start, req.Months, req.MonthPrice, req.InitialPaid)
	if err != nil {
		return nil, err
	}
	period.SubscriptionID = sub.SubscriptionID
	invoice := s.newInvoice(pol, model.InvoiceActionExtend, period.Price, period.PaidAmount)

	if err := s.repo.Subscription.AddPeriod(ctx, period, invoice); err != nil {
		s.logger.Error("续订失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("订阅已续订", zap.String("id", id), zap.String("end_date", dateutil.FormatDate(period.EndDate)))
	return s.mutationResponse(ctx, id, invoice)
}

// ────────────────────── Pay ──────────────────────

func (s *subscriptionService) Pay(ctx context.Context, pol policy.Policy, id string, req *dto.PaymentRequest) (*dto.SubscriptionMutationResponse, error) {
	sub, err := s.getSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	// 事务内会在锁定周期后再次校验
	if err := billing.CheckPayment(sub.Periods, req.Amount); err != nil {
		return nil, err
	}

	creator := pol.UserID()
	invoice := &model.Invoice{Action: model.InvoiceActionPayment, Time: s.now(), CreatedBy: &creator}
	if err := s.repo.Subscription.ApplyPayment(ctx, id, req.Amount, invoice); err != nil {
		if errors.Is(err, billing.ErrExceedsDue) || errors.Is(err, billing.ErrNothingDue) {
			return nil, err
		}
		s.logger.Error("付款失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	metrics.PaymentsApplied.Add(invoice.Paid)
	metrics.SubscriptionInvoices.WithLabelValues(model.InvoiceActionPayment).Inc()
	s.logger.Info("付款已入账", zap.String("id", id), zap.Float64("amount", invoice.Paid))
	return s.mutationResponse(ctx, id, invoice)
}

// ────────────────────── Search / Get / Delete ──────────────────────

func (s *subscriptionService) Search(ctx context.Context, req *dto.SubscriptionSearchRequest) ([]dto.SubscriptionResponse, int64, error) {
	today := dateutil.Today(s.now(), s.cfg.Location())
	filter := repository.SubscriptionFilter{
		UserID:          parsedUUID(req.User),
		DivisionID:      parsedUUID(req.Division),
		SportCategoryID: parsedUUID(req.SportCategory),
		Today:           today,
	}
	switch req.Expired {
	case "yes":
		v := true
		filter.Expired = &v
	case "no":
		v := false
		filter.Expired = &v
	}

	rows, total, err := s.repo.Subscription.Search(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("搜索订阅失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SubscriptionResponse, 0, len(rows))
	for i := range rows {
		result = append(result, s.toRowResponse(&rows[i], today))
	}
	return result, total, nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.getSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.Subscription.ListInvoices(ctx, id)
	if err != nil {
		s.logger.Error("查询订阅发票失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := s.toDetailResponse(sub, invoices)
	return &resp, nil
}

func (s *subscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Subscription.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		s.logger.Error("删除订阅失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("订阅已删除", zap.String("id", id))
	return nil
}

// ────────────────────── 发票 ──────────────────────

func (s *subscriptionService) ListInvoices(ctx context.Context, id string) ([]dto.InvoiceResponse, error) {
	if _, err := s.getSubscription(ctx, id); err != nil {
		return nil, err
	}
	invoices, err := s.repo.Subscription.ListInvoices(ctx, id)
	if err != nil {
		s.logger.Error("查询订阅发票失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		result = append(result, toInvoiceResponse(&invoices[i]))
	}
	return result, nil
}

func (s *subscriptionService) InvoiceDocument(ctx context.Context, invoiceID string) (*dto.InvoiceDocumentResponse, error) {
	invoice, err := s.repo.Subscription.GetInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		s.logger.Error("查询发票失败", zap.String("id", invoiceID), zap.Error(err))
		return nil, err
	}

	vat := billing.SplitVAT(invoice.Paid, s.cfg.VATRate)
	doc := &dto.InvoiceDocumentResponse{
		Invoice:        toInvoiceResponse(invoice),
		Organization:   lookupOrganization(ctx, s.repo, s.logger),
		PriceBeforeVAT: vat.PriceBeforeVAT,
		VAT:            vat.VAT,
		VATRate:        s.cfg.VATRate,
		Remaining:      billing.Round2(invoice.TotalPrice - invoice.Paid),
	}
	if invoice.Subscription != nil {
		doc.User = toUserBrief(invoice.Subscription.User)
		doc.Division = toDivisionBrief(invoice.Subscription.Division)
	}
	return doc, nil
}

// ────────────────────── AttendanceHistory ──────────────────────

func (s *subscriptionService) AttendanceHistory(ctx context.Context, id string) (*dto.AttendanceHistoryResponse, error) {
	sub, err := s.getSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	days := s.cfg.AttendanceHistory
	if days <= 0 {
		days = defaultAttendanceHistory
	}
	since := dateutil.Today(s.now(), s.cfg.Location()).AddDate(0, 0, -days)

	resp := &dto.AttendanceHistoryResponse{
		Subscription: s.toDetailResponse(sub, nil),
		Since:        dateutil.FormatDate(since),
		Records:      []dto.AttendanceHistoryEntry{},
	}
	if sub.UserID == nil || sub.DivisionID == nil {
		return resp, nil
	}

	list, err := s.repo.Attendance.UserHistory(ctx, *sub.UserID, *sub.DivisionID, since)
	if err != nil {
		s.logger.Error("查询个人考勤失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	for _, a := range list {
		entry := dto.AttendanceHistoryEntry{RecordID: a.RecordID, Attended: a.Attended}
		if a.Record != nil {
			entry.Date = dateutil.FormatDate(a.Record.Date)
		}
		resp.Records = append(resp.Records, entry)
		if a.Attended {
			resp.Attended++
		}
	}
	resp.TotalSessions = len(list)
	return resp, nil
}

// ────────────────────── ExpiringSoon ──────────────────────

func (s *subscriptionService) ExpiringSoon(ctx context.Context) ([]dto.SubscriptionResponse, error) {
	today := dateutil.Today(s.now(), s.cfg.Location())
	rows, err := s.repo.Subscription.ListExpiringBetween(ctx, today, today.AddDate(0, 0, s.expiringSoonDays()))
	if err != nil {
		s.logger.Error("查询即将到期订阅失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SubscriptionResponse, 0, len(rows))
	for i := range rows {
		result = append(result, s.toRowResponse(&rows[i], today))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *subscriptionService) getSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := s.repo.Subscription.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		s.logger.Error("查询订阅失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) activeDivision(ctx context.Context, id string) (*model.Division, error) {
	division, err := s.repo.Division.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDivisionNotFound
		}
		s.logger.Error("查询训练班失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if division.Suspended {
		return nil, ErrDivisionSuspended
	}
	return division, nil
}

// newPeriod 周期总价 = 月费 × 月数；月费仅在有改价权限且显式提交时使用提交值
func (s *subscriptionService) newPeriod(pol policy.Policy, division *model.Division, start time.Time,
	months int, monthPrice *float64, initialPaid float64) (*model.SubscriptionPeriod, error) {

	perMonth := division.DefaultMonthPrice
	if monthPrice != nil && pol.Allows(policy.ChangeSubscriptionPrice) {
		perMonth = *monthPrice
	}
	price := billing.Round2(perMonth * float64(months))
	paid := billing.Round2(initialPaid)
	if paid > price {
		return nil, ErrInitialPaidExceedsPrice
	}
	return &model.SubscriptionPeriod{
		StartDate:  start,
		EndDate:    dateutil.AddMonths(start, months),
		Price:      price,
		PaidAmount: paid,
	}, nil
}

// newInvoice 只有实际收款时才开票
func (s *subscriptionService) newInvoice(pol policy.Policy, action string, total, paid float64) *model.Invoice {
	if paid <= 0 {
		return nil
	}
	creator := pol.UserID()
	return &model.Invoice{TotalPrice: total, Paid: paid, Time: s.now(), Action: action, CreatedBy: &creator}
}

func (s *subscriptionService) mutationResponse(ctx context.Context, id string, invoice *model.Invoice) (*dto.SubscriptionMutationResponse, error) {
	if invoice != nil && invoice.Action != model.InvoiceActionPayment {
		metrics.SubscriptionInvoices.WithLabelValues(invoice.Action).Inc()
	}
	detail, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.SubscriptionMutationResponse{Subscription: *detail}
	if invoice != nil {
		inv := toInvoiceResponse(invoice)
		resp.Invoice = &inv
	}
	return resp, nil
}

func (s *subscriptionService) expiringSoonDays() int {
	if s.cfg.ExpiringSoonDays > 0 {
		return s.cfg.ExpiringSoonDays
	}
	return defaultExpiringSoonDays
}

// expiryFlags 已过期：最近结束日早于今天；即将到期：未过期且在预警天数内结束
func (s *subscriptionService) expiryFlags(latestEnd *time.Time, today time.Time) (expired, soon bool) {
	if latestEnd == nil {
		return false, false
	}
	end := dateutil.Truncate(*latestEnd)
	if end.Before(today) {
		return true, false
	}
	return false, !end.After(today.AddDate(0, 0, s.expiringSoonDays()))
}

func (s *subscriptionService) toRowResponse(row *repository.SubscriptionRow, today time.Time) dto.SubscriptionResponse {
	resp := dto.SubscriptionResponse{
		ID:              row.SubscriptionID,
		User:            toUserBrief(row.User),
		Division:        toDivisionBrief(row.Division),
		LatestEndDate:   formatDatePtr(row.LatestEndDate),
		TotalDue:        billing.Round2(row.TotalDue),
		LatestInvoiceID: row.LatestInvoiceID,
		CreatedAt:       formatTimestamp(row.CreatedAt),
	}
	resp.Expired, resp.ExpiringSoon = s.expiryFlags(row.LatestEndDate, today)
	return resp
}

func (s *subscriptionService) toDetailResponse(sub *model.Subscription, invoices []model.Invoice) dto.SubscriptionResponse {
	today := dateutil.Today(s.now(), s.cfg.Location())
	latestEnd := latestEndDate(sub.Periods)

	resp := dto.SubscriptionResponse{
		ID:            sub.SubscriptionID,
		User:          toUserBrief(sub.User),
		Division:      toDivisionBrief(sub.Division),
		LatestEndDate: formatDatePtr(latestEnd),
		TotalDue:      billing.TotalDue(sub.Periods),
		Periods:       make([]dto.PeriodResponse, 0, len(sub.Periods)),
		CreatedAt:     formatTimestamp(sub.CreatedAt),
	}
	resp.Expired, resp.ExpiringSoon = s.expiryFlags(latestEnd, today)
	if len(invoices) > 0 {
		resp.LatestInvoiceID = &invoices[0].InvoiceID
	}
	for i := range sub.Periods {
		p := &sub.Periods[i]
		resp.Periods = append(resp.Periods, dto.PeriodResponse{
			ID:         p.PeriodID,
			StartDate:  dateutil.FormatDate(p.StartDate),
			EndDate:    dateutil.FormatDate(p.EndDate),
			Price:      p.Price,
			PaidAmount: p.PaidAmount,
			Due:        billing.Round2(p.Due()),
		})
	}
	return resp
}

func latestEndDate(periods []model.SubscriptionPeriod) *time.Time {
	var latest *time.Time
	for i := range periods {
		if latest == nil || periods[i].EndDate.After(*latest) {
			end := periods[i].EndDate
			latest = &end
		}
	}
	return latest
}

func toInvoiceResponse(inv *model.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:         inv.InvoiceID,
		Number:     formatNumber(inv.Number),
		Action:     inv.Action,
		TotalPrice: inv.TotalPrice,
		Paid:       inv.Paid,
		Time:       formatTimestamp(inv.Time),
	}
}

