package service

import (
	"context"
	"errors"
	"net/url"
	"sort"
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
)

// ── 预约模块业务错误 ──

var (
	ErrReservationNotFound = errors.New("预约不存在")
	ErrInvalidDay          = errors.New("日期格式应为 YYYY-MM-DD")
	ErrSlotTaken           = errors.New("该时间段在所选日期已被预约")
)

const (
	// 次日凌晨（含）之前开始的预约也算作“近期”
	upcomingTomorrowCutoff = 4 * 60
	upcomingStripDays      = 7
)

// ReservationService 预约业务接口
type ReservationService interface {
	// Upcoming 今天尚未结束的预约与次日凌晨的预约
	Upcoming(ctx context.Context) (*dto.UpcomingResponse, error)
	// FreeSlotsOn 指定日期每个场地的空闲时间段
	FreeSlotsOn(ctx context.Context, day string) (*dto.FreeSlotsResponse, error)
	Search(ctx context.Context, params url.Values, page *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.ReservationResponse, error)
	Delete(ctx context.Context, id string) error
	Invoice(ctx context.Context, id string) (*dto.ReservationInvoiceResponse, error)

	StartWizard(ctx context.Context, pol policy.Policy, req *dto.StartWizardRequest) (*dto.WizardResponse, error)
	WizardStep(ctx context.Context, pol policy.Policy, token string, req *dto.WizardStepRequest) (*dto.WizardSlotsResponse, error)
	CompleteWizard(ctx context.Context, pol policy.Policy, token string, req *dto.CompleteWizardRequest) ([]dto.ReservationResponse, error)
	CancelWizard(ctx context.Context, pol policy.Policy, token string) error
}

type reservationService struct {
	cfg    *config.BusinessConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewReservationService 创建 ReservationService 实例
func NewReservationService(cfg *config.BusinessConfig, repo *repository.Repository, logger *zap.Logger) ReservationService {
	return &reservationService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Upcoming ──────────────────────

func (s *reservationService) Upcoming(ctx context.Context) (*dto.UpcomingResponse, error) {
	loc := s.cfg.Location()
	now := s.now().In(loc)
	today := dateutil.Today(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	nowMinutes := now.Hour()*60 + now.Minute()

	list, err := s.repo.Reservation.ListByDays(ctx, []time.Time{today, tomorrow})
	if err != nil {
		s.logger.Error("查询近期预约失败", zap.Error(err))
		return nil, err
	}

	type upcoming struct {
		res   *model.Reservation
		day   time.Time
		start int
	}
	picked := make([]upcoming, 0, len(list))
	for i := range list {
		res := &list[i]
		if res.TimeSlot == nil {
			continue
		}
		span, err := parseSpan(res.TimeSlot.StartTime, res.TimeSlot.EndTime)
		if err != nil {
			continue
		}
		day := dateutil.Truncate(res.Day)
		switch {
		case day.Equal(today):
			if span.end >= nowMinutes || span.start >= nowMinutes {
				picked = append(picked, upcoming{res, day, span.start})
			}
		case day.Equal(tomorrow):
			if span.start <= upcomingTomorrowCutoff {
				picked = append(picked, upcoming{res, day, span.start})
			}
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if !picked[i].day.Equal(picked[j].day) {
			return picked[i].day.Before(picked[j].day)
		}
		return picked[i].start < picked[j].start
	})

	resp := &dto.UpcomingResponse{
		Reservations: make([]dto.ReservationResponse, 0, len(picked)),
		Days:         make([]dto.DayBrief, 0, upcomingStripDays+1),
	}
	for _, p := range picked {
		resp.Reservations = append(resp.Reservations, toReservationResponse(p.res))
	}
	for i, d := range dateutil.NextDays(today, upcomingStripDays) {
		resp.Days = append(resp.Days, dto.DayBrief{Date: d.Date, Weekday: int(d.Weekday), IsToday: i == 0})
	}
	return resp, nil
}

// ────────────────────── FreeSlotsOn ──────────────────────

func (s *reservationService) FreeSlotsOn(ctx context.Context, day string) (*dto.FreeSlotsResponse, error) {
	d, err := dateutil.ParseDate(day)
	if err != nil {
		return nil, ErrInvalidDay
	}

	facilities, err := s.repo.Facility.List(ctx, false)
	if err != nil {
		s.logger.Error("列出场地失败", zap.Error(err))
		return nil, err
	}
	reservations, err := s.repo.Reservation.ListByDays(ctx, []time.Time{d})
	if err != nil {
		s.logger.Error("查询预约失败", zap.String("day", day), zap.Error(err))
		return nil, err
	}

	reserved := make(map[string][]string, len(facilities))
	for _, res := range reservations {
		if res.TimeSlotID != nil {
			reserved[res.FacilityID] = append(reserved[res.FacilityID], *res.TimeSlotID)
		}
	}

	resp := &dto.FreeSlotsResponse{Day: dateutil.FormatDate(d), Facilities: make([]dto.FacilityFreeSlots, 0, len(facilities))}
	for i := range facilities {
		f := &facilities[i]
		resp.Facilities = append(resp.Facilities, dto.FacilityFreeSlots{
			Facility:  dto.NamedBrief{ID: f.FacilityID, Name: f.Name},
			Color:     f.Color,
			FreeSlots: toTimeSlotResponses(FreeSlots(f.TimeSlots, reserved[f.FacilityID])),
		})
	}
	return resp, nil
}

// ────────────────────── Search ──────────────────────

func (s *reservationService) Search(ctx context.Context, params url.Values, page *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error) {
	filter := ParseReservationSearch(params)
	list, total, err := s.repo.Reservation.Search(ctx, filter, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("搜索预约失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ReservationResponse, 0, len(list))
	for i := range list {
		result = append(result, toReservationResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── GetByID / Delete ──────────────────────

func (s *reservationService) GetByID(ctx context.Context, id string) (*dto.ReservationResponse, error) {
	res, err := s.getReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toReservationResponse(res)
	return &resp, nil
}

func (s *reservationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Reservation.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReservationNotFound
		}
		s.logger.Error("删除预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("预约已删除", zap.String("id", id))
	return nil
}

// ────────────────────── Invoice ──────────────────────

func (s *reservationService) Invoice(ctx context.Context, id string) (*dto.ReservationInvoiceResponse, error) {
	res, err := s.getReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	vat := billing.SplitVAT(res.Price, s.cfg.VATRate)
	return &dto.ReservationInvoiceResponse{
		Number:         formatNumber(res.Number),
		Organization:   lookupOrganization(ctx, s.repo, s.logger),
		Reservation:    toReservationResponse(res),
		PriceBeforeVAT: vat.PriceBeforeVAT,
		VAT:            vat.VAT,
		VATRate:        s.cfg.VATRate,
		Total:          vat.Total,
		IssuedAt:       formatTimestamp(res.CreatedAt),
	}, nil
}

// ── 内部辅助方法 ──

func (s *reservationService) getReservation(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := s.repo.Reservation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func toReservationResponse(r *model.Reservation) dto.ReservationResponse {
	resp := dto.ReservationResponse{
		ID:        r.ReservationID,
		Number:    formatNumber(r.Number),
		User:      toUserBrief(r.User),
		Day:       dateutil.FormatDate(r.Day),
		Price:     r.Price,
		CreatedAt: formatTimestamp(r.CreatedAt),
	}
	if r.Facility != nil {
		resp.Facility = &dto.NamedBrief{ID: r.Facility.FacilityID, Name: r.Facility.Name}
		if r.Facility.Category != nil {
			resp.Category = &dto.NamedBrief{ID: r.Facility.Category.CategoryID, Name: r.Facility.Category.Name}
		}
	}
	if r.TimeSlot != nil {
		slot := toTimeSlotResponse(r.TimeSlot)
		resp.TimeSlot = &slot
	}
	return resp
}
