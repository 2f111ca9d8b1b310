package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"club-manager/backend/internal/billing"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
)

// ── 报表模块业务错误 ──

var (
	ErrInvalidReportRange  = errors.New("报表日期区间无效")
	ErrInvalidReportPeriod = errors.New("报表周期参数不完整")
)

// 报表区间上限
const reportMaxDays = 366 * 2

// ReportService 报表业务接口
//
// 汇总以 JSON 返回；明细与汇总的导出为 .xlsx
type ReportService interface {
	// ResolvePeriod 把按月 / 按年 / 自定义的选择解析为日期区间
	ResolvePeriod(req *dto.ReportPeriodRequest) (*dto.ReportPeriodResponse, error)

	ReservationSummary(ctx context.Context, req *dto.DateRangeRequest) (*dto.ReportResponse, error)
	// ReservationRecords 区间内的预约明细表
	ReservationRecords(ctx context.Context, req *dto.DateRangeRequest) (*dto.FileResult, error)

	SubscriptionSummary(ctx context.Context, req *dto.DateRangeRequest) (*dto.ReportResponse, error)
	SubscriptionSummaryExport(ctx context.Context, req *dto.DateRangeRequest) (*dto.FileResult, error)
}

type reportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

// ────────────────────── ResolvePeriod ──────────────────────

func (s *reportService) ResolvePeriod(req *dto.ReportPeriodRequest) (*dto.ReportPeriodResponse, error) {
	var from, to time.Time
	switch req.Period {
	case "monthly":
		if req.Month == 0 || req.Year == 0 {
			return nil, ErrInvalidReportPeriod
		}
		from, to = dateutil.MonthRange(req.Year, time.Month(req.Month))
	case "yearly":
		if req.Year == 0 {
			return nil, ErrInvalidReportPeriod
		}
		from, to = dateutil.YearRange(req.Year)
	case "custom":
		if req.DayFrom == "" || req.DayTo == "" {
			return nil, ErrInvalidReportPeriod
		}
		var err error
		if from, err = dateutil.ParseDate(req.DayFrom); err != nil {
			return nil, ErrInvalidReportPeriod
		}
		if to, err = dateutil.ParseDate(req.DayTo); err != nil {
			return nil, ErrInvalidReportPeriod
		}
		if to.Before(from) {
			return nil, ErrInvalidReportRange
		}
	default:
		return nil, ErrInvalidReportPeriod
	}
	return &dto.ReportPeriodResponse{StartDate: dateutil.FormatDate(from), EndDate: dateutil.FormatDate(to)}, nil
}

// ────────────────────── 预约报表 ──────────────────────

func (s *reportService) ReservationSummary(ctx context.Context, req *dto.DateRangeRequest) (*dto.ReportResponse, error) {
	from, to, err := parseReportRange(req)
	if err != nil {
		return nil, err
	}
	report, err := s.repo.Reservation.Report(ctx, from, to)
	if err != nil {
		s.logger.Error("生成预约报表失败", zap.String("from", req.StartDate), zap.String("to", req.EndDate), zap.Error(err))
		return nil, err
	}
	return &dto.ReportResponse{StartDate: req.StartDate, EndDate: req.EndDate, Data: report}, nil
}

func (s *reportService) ReservationRecords(ctx context.Context, req *dto.DateRangeRequest) (*dto.FileResult, error) {
	from, to, err := parseReportRange(req)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.Reservation.ListRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询预约明细失败", zap.Error(err))
		return nil, err
	}

	w, err := newSheetWriter("预约明细")
	if err != nil {
		return nil, err
	}
	w.widths(10, 12, 14, 22, 14, 20, 14, 10)
	w.title(fmt.Sprintf("预约明细 %s 至 %s", req.StartDate, req.EndDate), 8)
	w.header("编号", "日期", "时间", "顾客", "手机号", "场地", "类别", "价格")

	var total float64
	for i := range list {
		r := &list[i]
		var customer, phone, facility, category, clock string
		if r.User != nil {
			customer, phone = r.User.FullName, r.User.Phone
		}
		if r.Facility != nil {
			facility = r.Facility.Name
			if r.Facility.Category != nil {
				category = r.Facility.Category.Name
			}
		}
		if r.TimeSlot != nil {
			clock = dateutil.NormalizeClock(r.TimeSlot.StartTime) + "-" + dateutil.NormalizeClock(r.TimeSlot.EndTime)
		}
		w.line(formatNumber(r.Number), dateutil.FormatDate(r.Day), clock, customer, phone, facility, category, r.Price)
		total += r.Price
	}
	w.blank()
	w.line("合计", len(list), "", "", "", "", "", billing.Round2(total))

	file, err := w.finish(fmt.Sprintf("reservations_%s_%s.xlsx", req.StartDate, req.EndDate))
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, err
	}
	return file, nil
}

// ────────────────────── 订阅报表 ──────────────────────

func (s *reportService) SubscriptionSummary(ctx context.Context, req *dto.DateRangeRequest) (*dto.ReportResponse, error) {
	report, err := s.subscriptionReport(ctx, req)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResponse{StartDate: req.StartDate, EndDate: req.EndDate, Data: report}, nil
}

func (s *reportService) SubscriptionSummaryExport(ctx context.Context, req *dto.DateRangeRequest) (*dto.FileResult, error) {
	report, err := s.subscriptionReport(ctx, req)
	if err != nil {
		return nil, err
	}

	w, err := newSheetWriter("订阅报表")
	if err != nil {
		return nil, err
	}
	w.widths(26, 18, 16, 16, 16)
	w.title(fmt.Sprintf("订阅报表 %s 至 %s", req.StartDate, req.EndDate), 5)

	w.header("新开周期", "周期总价", "已收金额")
	w.line(report.NewSubs.NewSubsCount, report.NewSubs.TotalPrices, report.NewSubs.TotalPaidAmount)
	w.blank()

	w.header("训练班", "类别", "订阅数", "训练课次", "收入")
	for _, d := range report.Divisions {
		w.line(d.Name, d.CategoryName, d.SubscriptionsCount, d.NumberOfSessions, d.IncomeGenerated)
	}
	w.blank()

	w.header("出勤人次", "缺勤人次", "训练课次")
	ts := report.TrainingSessions
	w.line(ts.AttendedCount, ts.AbsentCount, ts.SessionsCount)

	file, err := w.finish(fmt.Sprintf("subscriptions_%s_%s.xlsx", req.StartDate, req.EndDate))
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, err
	}
	return file, nil
}

// ── 内部辅助方法 ──

func (s *reportService) subscriptionReport(ctx context.Context, req *dto.DateRangeRequest) (*model.SubscriptionReport, error) {
	from, to, err := parseReportRange(req)
	if err != nil {
		return nil, err
	}
	report, err := s.repo.Subscription.Report(ctx, from, to)
	if err != nil {
		s.logger.Error("生成订阅报表失败", zap.String("from", req.StartDate), zap.String("to", req.EndDate), zap.Error(err))
		return nil, err
	}
	return report, nil
}

func parseReportRange(req *dto.DateRangeRequest) (time.Time, time.Time, error) {
	from, err := dateutil.ParseDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidReportRange
	}
	to, err := dateutil.ParseDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidReportRange
	}
	if to.Before(from) || to.Sub(from) > reportMaxDays*24*time.Hour {
		return time.Time{}, time.Time{}, ErrInvalidReportRange
	}
	return from, to, nil
}
