package repository

import (
	"context"

	"gorm.io/gorm"

	"club-manager/backend/internal/model"
	pkgerrors "club-manager/backend/pkg/errors"
)

// FacilityRepository 场地、场地类别与时间段数据访问接口
type FacilityRepository interface {
	CreateCategory(ctx context.Context, category *model.FacilityCategory) error
	ListCategories(ctx context.Context) ([]model.FacilityCategory, error)
	GetCategory(ctx context.Context, id string) (*model.FacilityCategory, error)

	Create(ctx context.Context, facility *model.Facility) error
	// GetByID 预加载类别与按开始时间排序的时间段
	GetByID(ctx context.Context, id string) (*model.Facility, error)
	// List 预加载类别与时间段
	List(ctx context.Context, includeSuspended bool) ([]model.Facility, error)
	Update(ctx context.Context, facility *model.Facility) error

	ListSlots(ctx context.Context, facilityID string) ([]model.TimeSlot, error)
	GetSlot(ctx context.Context, id string) (*model.TimeSlot, error)
	// ReplaceSlots 在事务中同步场地的时间段：更新保留的、创建新增的、删除未出现的
	ReplaceSlots(ctx context.Context, facilityID string, slots []model.TimeSlot) error
}

type facilityRepo struct {
	db *gorm.DB
}

// NewFacilityRepo 创建 FacilityRepository 实例
func NewFacilityRepo(db *gorm.DB) FacilityRepository {
	return &facilityRepo{db: db}
}

// ── 场地类别 ──

func (r *facilityRepo) CreateCategory(ctx context.Context, category *model.FacilityCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *facilityRepo) ListCategories(ctx context.Context) ([]model.FacilityCategory, error) {
	var categories []model.FacilityCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *facilityRepo) GetCategory(ctx context.Context, id string) (*model.FacilityCategory, error) {
	var category model.FacilityCategory
	if err := r.db.WithContext(ctx).Where("category_id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ── 场地 ──

func (r *facilityRepo) Create(ctx context.Context, facility *model.Facility) error {
	return pkgerrors.TranslatePG(r.db.WithContext(ctx).Omit("Category", "TimeSlots").Create(facility).Error)
}

func (r *facilityRepo) GetByID(ctx context.Context, id string) (*model.Facility, error) {
	var facility model.Facility
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("TimeSlots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("facility_id = ?", id).
		First(&facility).Error
	if err != nil {
		return nil, err
	}
	return &facility, nil
}

func (r *facilityRepo) List(ctx context.Context, includeSuspended bool) ([]model.Facility, error) {
	var facilities []model.Facility
	db := r.db.WithContext(ctx).
		Preload("Category").
		Preload("TimeSlots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		})
	if !includeSuspended {
		db = db.Where("suspended = ?", false)
	}
	err := db.Order("name ASC").Find(&facilities).Error
	return facilities, err
}

func (r *facilityRepo) Update(ctx context.Context, facility *model.Facility) error {
	oldVersion := facility.Version
	result := r.db.WithContext(ctx).
		Model(&model.Facility{}).
		Where("facility_id = ? AND version = ?", facility.FacilityID, oldVersion).
		Updates(map[string]interface{}{
			"name":          facility.Name,
			"category_id":   facility.CategoryID,
			"default_price": facility.DefaultPrice,
			"color":         facility.Color,
			"image_url":     facility.ImageURL,
			"suspended":     facility.Suspended,
			"updated_at":    gorm.Expr("NOW()"),
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return pkgerrors.TranslatePG(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	facility.Version = oldVersion + 1
	return nil
}

// ── 时间段 ──

func (r *facilityRepo) ListSlots(ctx context.Context, facilityID string) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	err := r.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *facilityRepo) GetSlot(ctx context.Context, id string) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	if err := r.db.WithContext(ctx).Where("time_slot_id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *facilityRepo) ReplaceSlots(ctx context.Context, facilityID string, slots []model.TimeSlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(slots))
		for i := range slots {
			if slots[i].TimeSlotID != "" {
				keep = append(keep, slots[i].TimeSlotID)
			}
		}

		// 删除未出现在新列表中的时间段；已有预约的 time_slot_id 置空
		del := tx.Where("facility_id = ?", facilityID)
		if len(keep) > 0 {
			del = del.Where("time_slot_id NOT IN ?", keep)
		}
		if err := del.Delete(&model.TimeSlot{}).Error; err != nil {
			return err
		}

		for i := range slots {
			slots[i].FacilityID = facilityID
			if slots[i].TimeSlotID == "" {
				if err := tx.Create(&slots[i]).Error; err != nil {
					return err
				}
				continue
			}
			result := tx.Model(&model.TimeSlot{}).
				Where("time_slot_id = ? AND facility_id = ?", slots[i].TimeSlotID, facilityID).
				Updates(map[string]interface{}{
					"start_time": slots[i].StartTime,
					"end_time":   slots[i].EndTime,
					"updated_at": gorm.Expr("NOW()"),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
