package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Organization OrganizationRepository
	Facility     FacilityRepository
	Reservation  ReservationRepository
	Division     DivisionRepository
	Subscription SubscriptionRepository
	Attendance   AttendanceRepository
	Wizard       WizardStore
}

// NewRepository 创建 Repository 聚合；wizards 为 nil 时使用进程内存储
func NewRepository(db *gorm.DB, wizards WizardStore) *Repository {
	if wizards == nil {
		wizards = NewMemoryWizardStore()
	}
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Organization: NewOrganizationRepo(db),
		Facility:     NewFacilityRepo(db),
		Reservation:  NewReservationRepo(db),
		Division:     NewDivisionRepo(db),
		Subscription: NewSubscriptionRepo(db),
		Attendance:   NewAttendanceRepo(db),
		Wizard:       wizards,
	}
}

// BeginTx 开启事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务的 Repository 副本；向导存储不参与事务
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	txRepo := NewRepository(tx, r.Wizard)
	return txRepo
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
