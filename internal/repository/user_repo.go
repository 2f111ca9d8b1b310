package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"club-manager/backend/internal/model"
	pkgerrors "club-manager/backend/pkg/errors"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	ListStaff(ctx context.Context) ([]model.User, error)
	// ListCustomers 已确认顾客；query 非空时按手机号、姓名或邮箱模糊匹配
	ListCustomers(ctx context.Context, query string, offset, limit int) ([]model.User, int64, error)
	ListUnconfirmed(ctx context.Context) ([]model.User, error)
	CountUnconfirmed(ctx context.Context) (int64, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return pkgerrors.TranslatePG(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	oldVersion := user.Version
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND version = ?", user.UserID, oldVersion).
		Updates(map[string]interface{}{
			"phone":        user.Phone,
			"full_name":    user.FullName,
			"email":        user.Email,
			"gender":       user.Gender,
			"birth_date":   user.BirthDate,
			"is_staff":     user.IsStaff,
			"is_superuser": user.IsSuperuser,
			"is_active":    user.IsActive,
			"confirmed":    user.Confirmed,
			"permissions":  user.Permissions,
			"updated_at":   gorm.Expr("NOW()"),
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return pkgerrors.TranslatePG(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version = oldVersion + 1
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		UpdateColumn("last_login", at).Error
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		Delete(&model.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) ListStaff(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_staff = ? OR is_superuser = ?", true, true).
		Order("is_superuser DESC, full_name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListCustomers(ctx context.Context, query string, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_staff = ? AND is_superuser = ? AND confirmed = ?", false, false, true)
	if query != "" {
		like := "%" + query + "%"
		db = db.Where("(phone ILIKE ? OR full_name ILIKE ? OR email ILIKE ?)", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("full_name ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepo) ListUnconfirmed(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_staff = ? AND confirmed = ?", false, false).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) CountUnconfirmed(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_staff = ? AND confirmed = ?", false, false).
		Count(&n).Error
	return n, err
}
