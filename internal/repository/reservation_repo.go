package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"club-manager/backend/internal/model"
	pkgerrors "club-manager/backend/pkg/errors"
)

// ReservationFilter 预约搜索条件，零值字段不参与过滤
type ReservationFilter struct {
	FacilityID string
	CategoryID string
	UserID     string
	Gender     string
	DayFrom    *time.Time // 含
	DayTo      *time.Time // 含
	PriceFrom  *float64   // 含
	PriceTo    *float64   // 含
	PriceLt    *float64
	PriceGt    *float64
}

// ReservationRepository 预约数据访问接口
type ReservationRepository interface {
	// CreateBatch 在一个事务中创建全部预约并回填编号；任一冲突整体回滚
	CreateBatch(ctx context.Context, reservations []model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	// Move 修改预约的日期、时间段与价格
	Move(ctx context.Context, id string, day time.Time, timeSlotID string, price float64) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter ReservationFilter, offset, limit int) ([]model.Reservation, int64, error)
	// ReservedSlotIDs 场地在任一给定日期上已被占用的时间段；excludeID 对应的预约视为不存在
	ReservedSlotIDs(ctx context.Context, facilityID string, days []time.Time, excludeID string) ([]string, error)
	ListByDays(ctx context.Context, days []time.Time) ([]model.Reservation, error)
	ListByFacilityRange(ctx context.Context, facilityID string, from, to time.Time) ([]model.Reservation, error)
	ListRange(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	Report(ctx context.Context, from, to time.Time) (*model.ReservationReport, error)
}

type reservationRepo struct {
	db *gorm.DB
}

// NewReservationRepo 创建 ReservationRepository 实例
func NewReservationRepo(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Facility").
		Preload("Facility.Category").
		Preload("TimeSlot")
}

func (r *reservationRepo) CreateBatch(ctx context.Context, reservations []model.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range reservations {
			res := &reservations[i]
			if err := tx.Omit("User", "Facility", "TimeSlot").Create(res).Error; err != nil {
				return pkgerrors.TranslatePG(err)
			}
			// number 为只读自增列，插入后回读
			if err := tx.Model(&model.Reservation{}).
				Where("reservation_id = ?", res.ReservationID).
				Pluck("number", &res.Number).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *reservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.preloaded(ctx).
		Where("reservation_id = ?", id).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) Move(ctx context.Context, id string, day time.Time, timeSlotID string, price float64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("reservation_id = ?", id).
		Updates(map[string]interface{}{
			"day":          day,
			"time_slot_id": timeSlotID,
			"price":        price,
			"updated_at":   gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return pkgerrors.TranslatePG(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reservationRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("reservation_id = ?", id).
		Delete(&model.Reservation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reservationRepo) Search(ctx context.Context, f ReservationFilter, offset, limit int) ([]model.Reservation, int64, error) {
	var list []model.Reservation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Joins("LEFT JOIN time_slots ON time_slots.time_slot_id = reservations.time_slot_id").
		Joins("LEFT JOIN facilities ON facilities.facility_id = reservations.facility_id").
		Joins("LEFT JOIN users ON users.user_id = reservations.user_id")

	if f.FacilityID != "" {
		db = db.Where("reservations.facility_id = ?", f.FacilityID)
	}
	if f.CategoryID != "" {
		db = db.Where("facilities.category_id = ?", f.CategoryID)
	}
	if f.UserID != "" {
		db = db.Where("reservations.user_id = ?", f.UserID)
	}
	if f.Gender != "" {
		db = db.Where("users.gender = ?", f.Gender)
	}
	if f.DayFrom != nil {
		db = db.Where("reservations.day >= ?", *f.DayFrom)
	}
	if f.DayTo != nil {
		db = db.Where("reservations.day <= ?", *f.DayTo)
	}
	if f.PriceFrom != nil {
		db = db.Where("reservations.price >= ?", *f.PriceFrom)
	}
	if f.PriceTo != nil {
		db = db.Where("reservations.price <= ?", *f.PriceTo)
	}
	if f.PriceLt != nil {
		db = db.Where("reservations.price < ?", *f.PriceLt)
	}
	if f.PriceGt != nil {
		db = db.Where("reservations.price > ?", *f.PriceGt)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Select("reservations.*").
		Preload("User").
		Preload("Facility").
		Preload("Facility.Category").
		Preload("TimeSlot").
		Order("reservations.day DESC, time_slots.start_time DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *reservationRepo) ReservedSlotIDs(ctx context.Context, facilityID string, days []time.Time, excludeID string) ([]string, error) {
	var ids []string
	if len(days) == 0 {
		return ids, nil
	}
	db := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("facility_id = ? AND day IN ? AND time_slot_id IS NOT NULL", facilityID, days)
	if excludeID != "" {
		db = db.Where("reservation_id <> ?", excludeID)
	}
	err := db.Distinct("time_slot_id").Pluck("time_slot_id", &ids).Error
	return ids, err
}

func (r *reservationRepo) ListByDays(ctx context.Context, days []time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	if len(days) == 0 {
		return list, nil
	}
	err := r.preloaded(ctx).
		Where("day IN ?", days).
		Order("day ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListByFacilityRange(ctx context.Context, facilityID string, from, to time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.preloaded(ctx).
		Where("facility_id = ? AND day BETWEEN ? AND ?", facilityID, from, to).
		Order("day ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.preloaded(ctx).
		Joins("LEFT JOIN time_slots ts ON ts.time_slot_id = reservations.time_slot_id").
		Where("reservations.day BETWEEN ? AND ?", from, to).
		Order("reservations.day ASC, ts.start_time ASC").
		Find(&list).Error
	return list, err
}

// Report 汇总、按场地、按类别、消费前五与按性别统计
func (r *reservationRepo) Report(ctx context.Context, from, to time.Time) (*model.ReservationReport, error) {
	report := &model.ReservationReport{}
	inRange := func() *gorm.DB {
		return r.db.WithContext(ctx).Table("reservations").
			Where("reservations.day BETWEEN ? AND ?", from, to)
	}

	if err := inRange().
		Select("COUNT(*) AS reservations_count, COUNT(DISTINCT reservations.user_id) AS users_count, COALESCE(SUM(reservations.price), 0) AS total_paid").
		Scan(&report.Summary).Error; err != nil {
		return nil, err
	}

	if err := inRange().
		Joins("JOIN facilities f ON f.facility_id = reservations.facility_id").
		Select("f.name AS name, COUNT(*) AS reservations_count, COALESCE(SUM(reservations.price), 0) AS income_generated").
		Group("f.facility_id, f.name").
		Order("income_generated DESC").
		Scan(&report.Facilities).Error; err != nil {
		return nil, err
	}

	if err := inRange().
		Joins("JOIN facilities f ON f.facility_id = reservations.facility_id").
		Joins("LEFT JOIN facility_categories c ON c.category_id = f.category_id").
		Select("COALESCE(c.name, '') AS name, COUNT(*) AS reservations_count, COALESCE(SUM(reservations.price), 0) AS income_generated").
		Group("c.category_id, c.name").
		Order("income_generated DESC").
		Scan(&report.Categories).Error; err != nil {
		return nil, err
	}

	if err := inRange().
		Joins("JOIN users u ON u.user_id = reservations.user_id").
		Select("u.full_name AS full_name, u.phone AS phone, u.gender AS gender, COUNT(*) AS reservations_count, COALESCE(SUM(reservations.price), 0) AS total_paid").
		Group("u.user_id, u.full_name, u.phone, u.gender").
		Order("total_paid DESC").
		Limit(5).
		Scan(&report.Customers).Error; err != nil {
		return nil, err
	}

	if err := inRange().
		Joins("JOIN users u ON u.user_id = reservations.user_id").
		Select("u.gender AS gender, COUNT(*) AS reservations_count, COUNT(DISTINCT u.user_id) AS customers_count, COALESCE(SUM(reservations.price), 0) AS income_generated").
		Group("u.gender").
		Order("income_generated DESC").
		Scan(&report.Genders).Error; err != nil {
		return nil, err
	}

	return report, nil
}
