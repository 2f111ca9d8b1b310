package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-manager/backend/config"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
	pkgerrors "club-manager/backend/pkg/errors"
)

// ── 场地模块业务错误 ──

var (
	ErrFacilityNotFound         = errors.New("场地不存在")
	ErrFacilityCategoryNotFound = errors.New("场地类别不存在")
	ErrFacilitySuspended        = errors.New("场地已停用")
	ErrTooManySlots             = errors.New("时间段数量超过上限")
	ErrSlotNotFound             = errors.New("时间段不存在")
	ErrSlotNotInFacility        = errors.New("时间段不属于该场地")
	ErrInvalidCalendarRange     = errors.New("日历区间无效")
)

// calendarMaxDays 日历导出的最大跨度
const calendarMaxDays = 366

// FacilityService 场地业务接口
type FacilityService interface {
	CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest) (*dto.NamedBrief, error)
	ListCategories(ctx context.Context) ([]dto.NamedBrief, error)

	Create(ctx context.Context, req *dto.CreateFacilityRequest) (*dto.FacilityResponse, error)
	GetByID(ctx context.Context, id string) (*dto.FacilityResponse, error)
	List(ctx context.Context, req *dto.FacilityListRequest) ([]dto.FacilityResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateFacilityRequest) (*dto.FacilityResponse, error)

	// ReplaceSlots 校验并整体替换场地的时间段
	ReplaceSlots(ctx context.Context, id string, req *dto.ReplaceTimeSlotsRequest) ([]dto.TimeSlotResponse, error)
	// Calendar 场地预约的 iCalendar 导出
	Calendar(ctx context.Context, id string, req *dto.CalendarRequest) (*dto.FileResult, error)
}

type facilityService struct {
	cfg    *config.BusinessConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewFacilityService 创建 FacilityService 实例
func NewFacilityService(cfg *config.BusinessConfig, repo *repository.Repository, logger *zap.Logger) FacilityService {
	return &facilityService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── 场地类别 ──────────────────────

func (s *facilityService) CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest) (*dto.NamedBrief, error) {
	category := &model.FacilityCategory{Name: req.Name}
	if err := s.repo.Facility.CreateCategory(ctx, category); err != nil {
		s.logger.Error("创建场地类别失败", zap.Error(err))
		return nil, err
	}
	return &dto.NamedBrief{ID: category.CategoryID, Name: category.Name}, nil
}

func (s *facilityService) ListCategories(ctx context.Context) ([]dto.NamedBrief, error) {
	categories, err := s.repo.Facility.ListCategories(ctx)
	if err != nil {
		s.logger.Error("列出场地类别失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.NamedBrief, 0, len(categories))
	for _, c := range categories {
		result = append(result, dto.NamedBrief{ID: c.CategoryID, Name: c.Name})
	}
	return result, nil
}

// ────────────────────── 场地 ──────────────────────

func (s *facilityService) Create(ctx context.Context, req *dto.CreateFacilityRequest) (*dto.FacilityResponse, error) {
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	facility := &model.Facility{
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		DefaultPrice: req.DefaultPrice,
		Color:        req.Color,
		ImageURL:     req.ImageURL,
	}
	if facility.Color == "" {
		facility.Color = "#000000"
	}
	if err := s.repo.Facility.Create(ctx, facility); err != nil {
		s.logger.Error("创建场地失败", zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, facility.FacilityID)
}

func (s *facilityService) GetByID(ctx context.Context, id string) (*dto.FacilityResponse, error) {
	facility, err := s.getFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFacilityResponse(facility), nil
}

func (s *facilityService) List(ctx context.Context, req *dto.FacilityListRequest) ([]dto.FacilityResponse, error) {
	facilities, err := s.repo.Facility.List(ctx, req.IncludeSuspended)
	if err != nil {
		s.logger.Error("列出场地失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.FacilityResponse, 0, len(facilities))
	for i := range facilities {
		result = append(result, *toFacilityResponse(&facilities[i]))
	}
	return result, nil
}

func (s *facilityService) Update(ctx context.Context, id string, req *dto.UpdateFacilityRequest) (*dto.FacilityResponse, error) {
	facility, err := s.getFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	if facility.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		facility.CategoryID = req.CategoryID
	}
	if req.Name != nil {
		facility.Name = *req.Name
	}
	if req.DefaultPrice != nil {
		facility.DefaultPrice = *req.DefaultPrice
	}
	if req.Color != nil {
		facility.Color = *req.Color
	}
	if req.ImageURL != nil {
		facility.ImageURL = *req.ImageURL
	}
	if req.Suspended != nil {
		facility.Suspended = *req.Suspended
	}

	if err := s.repo.Facility.Update(ctx, facility); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新场地失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── 时间段 ──────────────────────

func (s *facilityService) ReplaceSlots(ctx context.Context, id string, req *dto.ReplaceTimeSlotsRequest) ([]dto.TimeSlotResponse, error) {
	limit := s.cfg.MaxSlotsPerFacility
	if limit <= 0 {
		limit = 15
	}
	if len(req.Slots) > limit {
		return nil, ErrTooManySlots
	}

	facility, err := s.getFacility(ctx, id)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(facility.TimeSlots))
	for _, slot := range facility.TimeSlots {
		existing[slot.TimeSlotID] = struct{}{}
	}

	slots := make([]model.TimeSlot, 0, len(req.Slots))
	for _, in := range req.Slots {
		if in.ID != "" {
			if _, ok := existing[in.ID]; !ok {
				return nil, ErrSlotNotInFacility
			}
		}
		slots = append(slots, model.TimeSlot{
			TimeSlotID: in.ID,
			FacilityID: id,
			StartTime:  dateutil.NormalizeClock(in.StartTime),
			EndTime:    dateutil.NormalizeClock(in.EndTime),
		})
	}

	if err := ValidateSlotSet(slots); err != nil {
		return nil, err
	}

	if err := s.repo.Facility.ReplaceSlots(ctx, id, slots); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotInFacility
		}
		s.logger.Error("保存时间段失败", zap.String("facility_id", id), zap.Error(err))
		return nil, err
	}

	saved, err := s.repo.Facility.ListSlots(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("场地时间段已更新", zap.String("facility_id", id), zap.Int("count", len(saved)))
	return toTimeSlotResponses(saved), nil
}

// ────────────────────── 日历导出 ──────────────────────

func (s *facilityService) Calendar(ctx context.Context, id string, req *dto.CalendarRequest) (*dto.FileResult, error) {
	facility, err := s.getFacility(ctx, id)
	if err != nil {
		return nil, err
	}

	loc := s.cfg.Location()
	from := dateutil.Today(s.now(), loc)
	to := from.AddDate(0, 0, 30)
	if req.From != "" {
		if from, err = dateutil.ParseDate(req.From); err != nil {
			return nil, ErrInvalidCalendarRange
		}
	}
	if req.To != "" {
		if to, err = dateutil.ParseDate(req.To); err != nil {
			return nil, ErrInvalidCalendarRange
		}
	}
	if to.Before(from) || to.Sub(from) > calendarMaxDays*24*time.Hour {
		return nil, ErrInvalidCalendarRange
	}

	reservations, err := s.repo.Reservation.ListByFacilityRange(ctx, id, from, to)
	if err != nil {
		s.logger.Error("查询场地预约失败", zap.String("facility_id", id), zap.Error(err))
		return nil, err
	}

	data := buildReservationCalendar(facility, reservations, loc, s.now())
	return &dto.FileResult{
		Filename:    "facility-" + id + ".ics",
		ContentType: "text/calendar; charset=utf-8",
		Data:        []byte(data),
	}, nil
}

// ── 内部辅助方法 ──

func (s *facilityService) getFacility(ctx context.Context, id string) (*model.Facility, error) {
	facility, err := s.repo.Facility.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		s.logger.Error("查询场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return facility, nil
}

func (s *facilityService) checkCategory(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.Facility.GetCategory(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFacilityCategoryNotFound
		}
		return err
	}
	return nil
}

func toFacilityResponse(f *model.Facility) *dto.FacilityResponse {
	resp := &dto.FacilityResponse{
		ID:           f.FacilityID,
		Name:         f.Name,
		DefaultPrice: f.DefaultPrice,
		Color:        f.Color,
		ImageURL:     f.ImageURL,
		Suspended:    f.Suspended,
		Version:      f.Version,
		UpdatedAt:    formatTimestamp(f.UpdatedAt),
	}
	if f.Category != nil {
		resp.Category = &dto.NamedBrief{ID: f.Category.CategoryID, Name: f.Category.Name}
	}
	if len(f.TimeSlots) > 0 {
		resp.TimeSlots = toTimeSlotResponses(f.TimeSlots)
	}
	return resp
}
