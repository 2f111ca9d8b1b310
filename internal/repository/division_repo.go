package repository

import (
	"context"

	"gorm.io/gorm"

	"club-manager/backend/internal/model"
	pkgerrors "club-manager/backend/pkg/errors"
)

// DivisionRepository 运动类别、训练班与每周训练时间数据访问接口
type DivisionRepository interface {
	CreateCategory(ctx context.Context, category *model.SportCategory) error
	ListCategories(ctx context.Context) ([]model.SportCategory, error)
	GetCategory(ctx context.Context, id string) (*model.SportCategory, error)

	Create(ctx context.Context, division *model.Division) error
	// GetByID 预加载类别与训练时间
	GetByID(ctx context.Context, id string) (*model.Division, error)
	List(ctx context.Context, includeSuspended bool) ([]model.Division, error)
	Update(ctx context.Context, division *model.Division) error
	// CountSubscriptions 按训练班统计订阅数
	CountSubscriptions(ctx context.Context, divisionIDs []string) (map[string]int64, error)

	ReplaceTrainingDays(ctx context.Context, divisionID string, days []model.TrainingWeekDay) error
	GetTrainingDay(ctx context.Context, id string) (*model.TrainingWeekDay, error)
	// ListTrainingDaysByWeekday 未停用训练班在指定星期的训练时间
	ListTrainingDaysByWeekday(ctx context.Context, weekday int) ([]model.TrainingWeekDay, error)
}

type divisionRepo struct {
	db *gorm.DB
}

// NewDivisionRepo 创建 DivisionRepository 实例
func NewDivisionRepo(db *gorm.DB) DivisionRepository {
	return &divisionRepo{db: db}
}

// ── 运动类别 ──

func (r *divisionRepo) CreateCategory(ctx context.Context, category *model.SportCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *divisionRepo) ListCategories(ctx context.Context) ([]model.SportCategory, error) {
	var categories []model.SportCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *divisionRepo) GetCategory(ctx context.Context, id string) (*model.SportCategory, error) {
	var category model.SportCategory
	if err := r.db.WithContext(ctx).Where("category_id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ── 训练班 ──

func (r *divisionRepo) Create(ctx context.Context, division *model.Division) error {
	return pkgerrors.TranslatePG(r.db.WithContext(ctx).Omit("Category", "TrainingDays").Create(division).Error)
}

func (r *divisionRepo) GetByID(ctx context.Context, id string) (*model.Division, error) {
	var division model.Division
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("TrainingDays", func(db *gorm.DB) *gorm.DB {
			return db.Order("weekday ASC, start_time ASC")
		}).
		Where("division_id = ?", id).
		First(&division).Error
	if err != nil {
		return nil, err
	}
	return &division, nil
}

func (r *divisionRepo) List(ctx context.Context, includeSuspended bool) ([]model.Division, error) {
	var divisions []model.Division
	db := r.db.WithContext(ctx).Preload("Category")
	if !includeSuspended {
		db = db.Where("suspended = ?", false)
	}
	err := db.Order("name ASC").Find(&divisions).Error
	return divisions, err
}

func (r *divisionRepo) Update(ctx context.Context, division *model.Division) error {
	oldVersion := division.Version
	result := r.db.WithContext(ctx).
		Model(&model.Division{}).
		Where("division_id = ? AND version = ?", division.DivisionID, oldVersion).
		Updates(map[string]interface{}{
			"category_id":         division.CategoryID,
			"name":                division.Name,
			"default_month_price": division.DefaultMonthPrice,
			"suspended":           division.Suspended,
			"updated_at":          gorm.Expr("NOW()"),
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return pkgerrors.TranslatePG(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	division.Version = oldVersion + 1
	return nil
}

func (r *divisionRepo) CountSubscriptions(ctx context.Context, divisionIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(divisionIDs))
	if len(divisionIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		DivisionID string
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Select("division_id, COUNT(*) AS count").
		Where("division_id IN ?", divisionIDs).
		Group("division_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.DivisionID] = row.Count
	}
	return counts, nil
}

// ── 每周训练时间 ──

func (r *divisionRepo) ReplaceTrainingDays(ctx context.Context, divisionID string, days []model.TrainingWeekDay) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("division_id = ?", divisionID).
			Delete(&model.TrainingWeekDay{}).Error; err != nil {
			return err
		}
		if len(days) == 0 {
			return nil
		}
		for i := range days {
			days[i].DivisionID = divisionID
		}
		return tx.Omit("Division").Create(&days).Error
	})
}

func (r *divisionRepo) GetTrainingDay(ctx context.Context, id string) (*model.TrainingWeekDay, error) {
	var day model.TrainingWeekDay
	err := r.db.WithContext(ctx).
		Preload("Division").
		Preload("Division.Category").
		Where("training_day_id = ?", id).
		First(&day).Error
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *divisionRepo) ListTrainingDaysByWeekday(ctx context.Context, weekday int) ([]model.TrainingWeekDay, error) {
	var days []model.TrainingWeekDay
	err := r.db.WithContext(ctx).
		Joins("JOIN divisions d ON d.division_id = training_week_days.division_id").
		Where("training_week_days.weekday = ? AND d.suspended = ?", weekday, false).
		Preload("Division").
		Preload("Division.Category").
		Order("training_week_days.start_time ASC").
		Find(&days).Error
	return days, err
}
