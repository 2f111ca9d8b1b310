package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-manager/backend/internal/model"
)

// OrganizationRepository 俱乐部资料数据访问接口（单行表）
type OrganizationRepository interface {
	// Get 未配置时返回 gorm.ErrRecordNotFound
	Get(ctx context.Context) (*model.Organization, error)
	Save(ctx context.Context, org *model.Organization) error
}

type organizationRepo struct {
	db *gorm.DB
}

// NewOrganizationRepo 创建 OrganizationRepository 实例
func NewOrganizationRepo(db *gorm.DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) Get(ctx context.Context) (*model.Organization, error) {
	var org model.Organization
	err := r.db.WithContext(ctx).
		Where("singleton = ?", true).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Save 按 singleton 主键 upsert，表中永远只有一行
func (r *organizationRepo) Save(ctx context.Context, org *model.Organization) error {
	org.Singleton = true
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "singleton"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "phone", "address", "city", "tax_number",
				"commercial_register", "logo_url", "background_url", "updated_at",
			}),
		}).
		Create(org).Error
}
