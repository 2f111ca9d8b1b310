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

// ── 训练班模块业务错误 ──

var (
	ErrDivisionNotFound        = errors.New("训练班不存在")
	ErrSportCategoryNotFound   = errors.New("运动类别不存在")
	ErrDivisionSuspended       = errors.New("训练班已停用")
	ErrTooManyTrainingDays     = errors.New("每周训练时间最多 7 个")
	ErrTrainingDayNotFound     = errors.New("训练时间不存在")
	ErrTrainingDayInvalidRange = errors.New("训练开始时间必须早于结束时间")
)

const maxTrainingDays = 7

// DivisionService 运动类别、训练班与每周训练时间业务接口
type DivisionService interface {
	CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest) (*dto.NamedBrief, error)
	ListCategories(ctx context.Context) ([]dto.NamedBrief, error)

	Create(ctx context.Context, req *dto.CreateDivisionRequest) (*dto.DivisionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.DivisionResponse, error)
	// List 训练班列表，附带订阅数
	List(ctx context.Context, req *dto.DivisionListRequest) ([]dto.DivisionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateDivisionRequest) (*dto.DivisionResponse, error)
	Price(ctx context.Context, id string) (*dto.DivisionPriceResponse, error)

	ReplaceTrainingDays(ctx context.Context, id string, req *dto.ReplaceTrainingDaysRequest) ([]dto.TrainingDayResponse, error)
	// TodaySessions 今天（俱乐部时区）的训练课
	TodaySessions(ctx context.Context) ([]dto.TodaySessionResponse, error)
}

type divisionService struct {
	cfg    *config.BusinessConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewDivisionService 创建 DivisionService 实例
func NewDivisionService(cfg *config.BusinessConfig, repo *repository.Repository, logger *zap.Logger) DivisionService {
	return &divisionService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── 运动类别 ──────────────────────

func (s *divisionService) CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest) (*dto.NamedBrief, error) {
	category := &model.SportCategory{Name: req.Name}
	if err := s.repo.Division.CreateCategory(ctx, category); err != nil {
		s.logger.Error("创建运动类别失败", zap.Error(err))
		return nil, err
	}
	return &dto.NamedBrief{ID: category.CategoryID, Name: category.Name}, nil
}

func (s *divisionService) ListCategories(ctx context.Context) ([]dto.NamedBrief, error) {
	categories, err := s.repo.Division.ListCategories(ctx)
	if err != nil {
		s.logger.Error("列出运动类别失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.NamedBrief, 0, len(categories))
	for _, c := range categories {
		result = append(result, dto.NamedBrief{ID: c.CategoryID, Name: c.Name})
	}
	return result, nil
}

// ────────────────────── 训练班 ──────────────────────

func (s *divisionService) Create(ctx context.Context, req *dto.CreateDivisionRequest) (*dto.DivisionResponse, error) {
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	division := &model.Division{
		CategoryID:        req.CategoryID,
		Name:              req.Name,
		DefaultMonthPrice: req.DefaultMonthPrice,
	}
	if err := s.repo.Division.Create(ctx, division); err != nil {
		s.logger.Error("创建训练班失败", zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, division.DivisionID)
}

func (s *divisionService) GetByID(ctx context.Context, id string) (*dto.DivisionResponse, error) {
	division, err := s.getDivision(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.Division.CountSubscriptions(ctx, []string{id})
	if err != nil {
		s.logger.Error("统计订阅数失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toDivisionResponse(division, counts[id]), nil
}

func (s *divisionService) List(ctx context.Context, req *dto.DivisionListRequest) ([]dto.DivisionResponse, error) {
	divisions, err := s.repo.Division.List(ctx, req.IncludeSuspended)
	if err != nil {
		s.logger.Error("列出训练班失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(divisions))
	for _, d := range divisions {
		ids = append(ids, d.DivisionID)
	}
	counts, err := s.repo.Division.CountSubscriptions(ctx, ids)
	if err != nil {
		s.logger.Error("统计订阅数失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.DivisionResponse, 0, len(divisions))
	for i := range divisions {
		result = append(result, *toDivisionResponse(&divisions[i], counts[divisions[i].DivisionID]))
	}
	return result, nil
}

func (s *divisionService) Update(ctx context.Context, id string, req *dto.UpdateDivisionRequest) (*dto.DivisionResponse, error) {
	division, err := s.getDivision(ctx, id)
	if err != nil {
		return nil, err
	}
	if division.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		division.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		division.Name = *req.Name
	}
	if req.DefaultMonthPrice != nil {
		division.DefaultMonthPrice = *req.DefaultMonthPrice
	}
	if req.Suspended != nil {
		division.Suspended = *req.Suspended
	}

	if err := s.repo.Division.Update(ctx, division); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新训练班失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *divisionService) Price(ctx context.Context, id string) (*dto.DivisionPriceResponse, error) {
	division, err := s.getDivision(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.DivisionPriceResponse{DivisionID: division.DivisionID, Price: division.DefaultMonthPrice}, nil
}

// ────────────────────── 每周训练时间 ──────────────────────

func (s *divisionService) ReplaceTrainingDays(ctx context.Context, id string, req *dto.ReplaceTrainingDaysRequest) ([]dto.TrainingDayResponse, error) {
	if len(req.Days) > maxTrainingDays {
		return nil, ErrTooManyTrainingDays
	}
	if _, err := s.getDivision(ctx, id); err != nil {
		return nil, err
	}

	days := make([]model.TrainingWeekDay, 0, len(req.Days))
	for _, in := range req.Days {
		if err := validateTrainingDay(in); err != nil {
			return nil, err
		}
		days = append(days, model.TrainingWeekDay{
			Weekday:   in.Weekday,
			StartTime: dateutil.NormalizeClock(in.StartTime),
			EndTime:   dateutil.NormalizeClock(in.EndTime),
		})
	}

	if err := s.repo.Division.ReplaceTrainingDays(ctx, id, days); err != nil {
		s.logger.Error("保存训练时间失败", zap.String("division_id", id), zap.Error(err))
		return nil, err
	}

	division, err := s.getDivision(ctx, id)
	if err != nil {
		return nil, err
	}
	result := make([]dto.TrainingDayResponse, 0, len(division.TrainingDays))
	for i := range division.TrainingDays {
		result = append(result, toTrainingDayResponse(&division.TrainingDays[i]))
	}
	return result, nil
}

func (s *divisionService) TodaySessions(ctx context.Context) ([]dto.TodaySessionResponse, error) {
	today := dateutil.Today(s.now(), s.cfg.Location())

	days, err := s.repo.Division.ListTrainingDaysByWeekday(ctx, int(today.Weekday()))
	if err != nil {
		s.logger.Error("查询今日训练课失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(days))
	for _, d := range days {
		ids = append(ids, d.DivisionID)
	}
	counts, err := s.repo.Division.CountSubscriptions(ctx, ids)
	if err != nil {
		s.logger.Error("统计订阅数失败", zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.RecordIDsOn(ctx, ids, today)
	if err != nil {
		s.logger.Error("查询今日考勤记录失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TodaySessionResponse, 0, len(days))
	for i := range days {
		d := &days[i]
		item := dto.TodaySessionResponse{
			TrainingDay:        toTrainingDayResponse(d),
			SubscriptionsCount: counts[d.DivisionID],
		}
		if brief := toDivisionBrief(d.Division); brief != nil {
			item.Division = *brief
		}
		if recordID, ok := records[d.DivisionID]; ok {
			item.RecordID = &recordID
		}
		result = append(result, item)
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *divisionService) getDivision(ctx context.Context, id string) (*model.Division, error) {
	division, err := s.repo.Division.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDivisionNotFound
		}
		s.logger.Error("查询训练班失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return division, nil
}

func (s *divisionService) checkCategory(ctx context.Context, id string) error {
	if _, err := s.repo.Division.GetCategory(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSportCategoryNotFound
		}
		return err
	}
	return nil
}

// validateTrainingDay 训练时间不跨午夜
func validateTrainingDay(in dto.TrainingDayInput) error {
	start, err := dateutil.ParseClock(in.StartTime)
	if err != nil {
		return ErrSlotInvalidTime
	}
	end, err := dateutil.ParseClock(in.EndTime)
	if err != nil {
		return ErrSlotInvalidTime
	}
	if start >= end {
		return ErrTrainingDayInvalidRange
	}
	return nil
}

func toDivisionResponse(d *model.Division, subscriptions int64) *dto.DivisionResponse {
	resp := &dto.DivisionResponse{
		ID:                 d.DivisionID,
		Name:               d.Name,
		DisplayName:        d.DisplayName(),
		DefaultMonthPrice:  d.DefaultMonthPrice,
		Suspended:          d.Suspended,
		SubscriptionsCount: subscriptions,
		Version:            d.Version,
	}
	if d.Category != nil {
		resp.Category = &dto.NamedBrief{ID: d.Category.CategoryID, Name: d.Category.Name}
	}
	for i := range d.TrainingDays {
		resp.TrainingDays = append(resp.TrainingDays, toTrainingDayResponse(&d.TrainingDays[i]))
	}
	return resp
}
