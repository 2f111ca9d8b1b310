package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
	pkgerrors "club-manager/backend/pkg/errors"
	"club-manager/backend/pkg/metrics"
)

// ── 预约向导业务错误 ──

var (
	ErrWizardNotFound            = errors.New("预约向导不存在或已过期")
	ErrWizardForbidden           = errors.New("无权操作该预约向导")
	ErrWizardStep                = errors.New("请先完成第一步：选择场地与日期")
	ErrWizardReservationRequired = errors.New("修改预约需要指定预约")
	ErrWizardFacilityRequired    = errors.New("请选择场地")
	ErrWizardUserRequired        = errors.New("请选择顾客")
	ErrInvalidWeeks              = errors.New("周数超出允许范围")
)

const defaultWizardTTL = 30 * time.Minute

// ────────────────────── StartWizard ──────────────────────

func (s *reservationService) StartWizard(ctx context.Context, pol policy.Policy, req *dto.StartWizardRequest) (*dto.WizardResponse, error) {
	w := &model.ReservationWizard{
		Token:     uuid.NewString(),
		Kind:      req.Kind,
		Step:      model.WizardStepSelectDay,
		OwnerID:   pol.UserID(),
		ExpiresAt: s.now().Add(s.wizardTTL()),
	}

	if req.Kind == model.WizardUpdate {
		if req.ReservationID == "" {
			return nil, ErrWizardReservationRequired
		}
		res, err := s.getReservation(ctx, req.ReservationID)
		if err != nil {
			return nil, err
		}
		w.ReservationID = res.ReservationID
		w.FacilityID = res.FacilityID
	}

	if err := s.repo.Wizard.Save(ctx, w); err != nil {
		s.logger.Error("保存预约向导失败", zap.Error(err))
		return nil, err
	}
	return toWizardResponse(w), nil
}

// ────────────────────── WizardStep ──────────────────────

// WizardStep 保存第一步并返回第二步的可选时间段
// 可多次调用以修改第一步的选择
func (s *reservationService) WizardStep(ctx context.Context, pol policy.Policy, token string, req *dto.WizardStepRequest) (*dto.WizardSlotsResponse, error) {
	w, err := s.loadWizard(ctx, pol, token)
	if err != nil {
		return nil, err
	}
	day, err := dateutil.ParseDate(req.Day)
	if err != nil {
		return nil, ErrInvalidDay
	}

	switch w.Kind {
	case model.WizardUpdate:
		// 修改预约只允许换日期与时间段，场地保持不变
	default:
		if req.FacilityID == "" {
			return nil, ErrWizardFacilityRequired
		}
		w.FacilityID = req.FacilityID
	}

	weeks := 1
	if w.Kind == model.WizardWeekly {
		if req.Weeks < 2 || req.Weeks > s.maxWeeklyWeeks() {
			return nil, ErrInvalidWeeks
		}
		weeks = req.Weeks
	}

	w.Day = dateutil.FormatDate(day)
	w.Weeks = weeks
	w.Step = model.WizardStepSelectSlot

	options, err := s.slotOptions(ctx, pol, w)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Wizard.Save(ctx, w); err != nil {
		s.logger.Error("保存预约向导失败", zap.String("token", token), zap.Error(err))
		return nil, err
	}
	options.Wizard = *toWizardResponse(w)
	return options, nil
}

// ────────────────────── CompleteWizard ──────────────────────

func (s *reservationService) CompleteWizard(ctx context.Context, pol policy.Policy, token string, req *dto.CompleteWizardRequest) ([]dto.ReservationResponse, error) {
	w, err := s.loadWizard(ctx, pol, token)
	if err != nil {
		return nil, err
	}
	if w.Step != model.WizardStepSelectSlot {
		return nil, ErrWizardStep
	}

	facility, err := s.activeFacility(ctx, w.FacilityID)
	if err != nil {
		return nil, err
	}
	slot, err := s.repo.Facility.GetSlot(ctx, req.TimeSlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if slot.FacilityID != facility.FacilityID {
		return nil, ErrSlotNotInFacility
	}

	dates, err := wizardDates(w)
	if err != nil {
		return nil, err
	}
	reserved, err := s.repo.Reservation.ReservedSlotIDs(ctx, facility.FacilityID, dates, w.ReservationID)
	if err != nil {
		s.logger.Error("查询已占用时间段失败", zap.String("facility_id", facility.FacilityID), zap.Error(err))
		return nil, err
	}
	for _, id := range reserved {
		if id == slot.TimeSlotID {
			return nil, ErrSlotTaken
		}
	}

	var ids []string
	if w.Kind == model.WizardUpdate {
		ids, err = s.moveReservation(ctx, pol, w, slot, dates[0], req.Price)
	} else {
		ids, err = s.createReservations(ctx, pol, w, facility, slot, dates, req)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.Wizard.Delete(ctx, w.Token); err != nil {
		s.logger.Warn("删除预约向导失败", zap.String("token", w.Token), zap.Error(err))
	}

	result := make([]dto.ReservationResponse, 0, len(ids))
	for _, id := range ids {
		res, err := s.getReservation(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, toReservationResponse(res))
	}
	return result, nil
}

func (s *reservationService) CancelWizard(ctx context.Context, pol policy.Policy, token string) error {
	w, err := s.loadWizard(ctx, pol, token)
	if err != nil {
		return err
	}
	return s.repo.Wizard.Delete(ctx, w.Token)
}

// ── 内部辅助方法 ──

func (s *reservationService) createReservations(ctx context.Context, pol policy.Policy, w *model.ReservationWizard,
	facility *model.Facility, slot *model.TimeSlot, dates []time.Time, req *dto.CompleteWizardRequest) ([]string, error) {

	if req.UserID == "" {
		return nil, ErrWizardUserRequired
	}
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

	price := chosenPrice(pol, req.Price, facility.DefaultPrice)
	creator := pol.UserID()
	reservations := make([]model.Reservation, 0, len(dates))
	for _, d := range dates {
		slotID := slot.TimeSlotID
		reservations = append(reservations, model.Reservation{
			UserID:     &user.UserID,
			FacilityID: facility.FacilityID,
			TimeSlotID: &slotID,
			Day:        d,
			Price:      price,
			CreatedBy:  &creator,
		})
	}

	if err := s.repo.Reservation.CreateBatch(ctx, reservations); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrSlotTaken
		}
		s.logger.Error("创建预约失败", zap.String("facility_id", facility.FacilityID), zap.Error(err))
		return nil, err
	}
	metrics.ReservationsCreated.WithLabelValues(w.Kind).Add(float64(len(reservations)))

	ids := make([]string, 0, len(reservations))
	for i := range reservations {
		ids = append(ids, reservations[i].ReservationID)
	}
	s.logger.Info("预约已创建",
		zap.String("kind", w.Kind),
		zap.String("facility_id", facility.FacilityID),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

func (s *reservationService) moveReservation(ctx context.Context, pol policy.Policy, w *model.ReservationWizard,
	slot *model.TimeSlot, day time.Time, price *float64) ([]string, error) {

	old, err := s.getReservation(ctx, w.ReservationID)
	if err != nil {
		return nil, err
	}
	newPrice := chosenPrice(pol, price, old.Price)

	if err := s.repo.Reservation.Move(ctx, old.ReservationID, day, slot.TimeSlotID, newPrice); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrReservationNotFound
		case errors.Is(err, pkgerrors.ErrDuplicate):
			return nil, ErrSlotTaken
		}
		s.logger.Error("修改预约失败", zap.String("id", old.ReservationID), zap.Error(err))
		return nil, err
	}
	metrics.ReservationsCreated.WithLabelValues(w.Kind).Inc()
	s.logger.Info("预约已修改", zap.String("id", old.ReservationID), zap.String("day", dateutil.FormatDate(day)))
	return []string{old.ReservationID}, nil
}

// slotOptions 第二步的候选时间段：在全部日期上都空闲的时间段
func (s *reservationService) slotOptions(ctx context.Context, pol policy.Policy, w *model.ReservationWizard) (*dto.WizardSlotsResponse, error) {
	facility, err := s.activeFacility(ctx, w.FacilityID)
	if err != nil {
		return nil, err
	}
	dates, err := wizardDates(w)
	if err != nil {
		return nil, err
	}
	reserved, err := s.repo.Reservation.ReservedSlotIDs(ctx, facility.FacilityID, dates, w.ReservationID)
	if err != nil {
		s.logger.Error("查询已占用时间段失败", zap.String("facility_id", facility.FacilityID), zap.Error(err))
		return nil, err
	}

	defaultPrice := facility.DefaultPrice
	if w.Kind == model.WizardUpdate {
		old, err := s.getReservation(ctx, w.ReservationID)
		if err != nil {
			return nil, err
		}
		defaultPrice = old.Price
	}

	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, dateutil.FormatDate(d))
	}
	return &dto.WizardSlotsResponse{
		Facility:      dto.NamedBrief{ID: facility.FacilityID, Name: facility.Name},
		Dates:         formatted,
		FreeSlots:     toTimeSlotResponses(FreeSlots(facility.TimeSlots, reserved)),
		AllSlots:      toTimeSlotResponses(facility.TimeSlots),
		DefaultPrice:  defaultPrice,
		PriceEditable: pol.Allows(policy.ChangePrice),
		Operations:    pol.Operations(),
	}, nil
}

func (s *reservationService) loadWizard(ctx context.Context, pol policy.Policy, token string) (*model.ReservationWizard, error) {
	w, err := s.repo.Wizard.Get(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrWizardNotFound) {
			return nil, ErrWizardNotFound
		}
		s.logger.Error("读取预约向导失败", zap.String("token", token), zap.Error(err))
		return nil, err
	}
	if w.OwnerID != pol.UserID() {
		return nil, ErrWizardForbidden
	}
	return w, nil
}

func (s *reservationService) activeFacility(ctx context.Context, id string) (*model.Facility, error) {
	facility, err := s.repo.Facility.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		s.logger.Error("查询场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if facility.Suspended {
		return nil, ErrFacilitySuspended
	}
	return facility, nil
}

func (s *reservationService) wizardTTL() time.Duration {
	if s.cfg.WizardTTL > 0 {
		return s.cfg.WizardTTL
	}
	return defaultWizardTTL
}

func (s *reservationService) maxWeeklyWeeks() int {
	if s.cfg.MaxWeeklyWeeks >= 2 {
		return s.cfg.MaxWeeklyWeeks
	}
	return 52
}

func wizardDates(w *model.ReservationWizard) ([]time.Time, error) {
	day, err := dateutil.ParseDate(w.Day)
	if err != nil {
		return nil, ErrWizardStep
	}
	weeks := w.Weeks
	if weeks < 1 {
		weeks = 1
	}
	return dateutil.WeeklyDates(day, weeks), nil
}

// chosenPrice 只有拥有改价权限且显式提交价格时才使用提交值
func chosenPrice(pol policy.Policy, submitted *float64, fallback float64) float64 {
	if submitted != nil && pol.Allows(policy.ChangePrice) {
		return *submitted
	}
	return fallback
}

func toWizardResponse(w *model.ReservationWizard) *dto.WizardResponse {
	return &dto.WizardResponse{
		Token:         w.Token,
		Kind:          w.Kind,
		Step:          w.Step,
		ExpiresAt:     formatTimestamp(w.ExpiresAt),
		FacilityID:    w.FacilityID,
		Day:           w.Day,
		Weeks:         w.Weeks,
		ReservationID: w.ReservationID,
	}
}
