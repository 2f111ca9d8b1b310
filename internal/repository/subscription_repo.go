package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-manager/backend/internal/billing"
	"club-manager/backend/internal/model"
	pkgerrors "club-manager/backend/pkg/errors"
)

// SubscriptionFilter 订阅搜索条件
type SubscriptionFilter struct {
	UserID          string
	DivisionID      string
	SportCategoryID string
	// Expired 非 nil 时按最近周期结束日与 Today 比较
	Expired *bool
	Today   time.Time
}

// SubscriptionRow 带聚合字段的订阅
type SubscriptionRow struct {
	model.Subscription
	LatestEndDate   *time.Time `gorm:"column:latest_end_date"   json:"latest_end_date"`
	TotalDue        float64    `gorm:"column:total_due"         json:"total_due"`
	LatestInvoiceID *string    `gorm:"column:latest_invoice_id" json:"latest_invoice_id"`
}

// SubscriptionRepository 订阅、计费周期与发票数据访问接口
type SubscriptionRepository interface {
	// CreateWithPeriod 在一个事务中创建订阅、首个周期与（可选）发票
	CreateWithPeriod(ctx context.Context, sub *model.Subscription, period *model.SubscriptionPeriod, invoice *model.Invoice) error
	// AddPeriod 在一个事务中追加周期与（可选）发票
	AddPeriod(ctx context.Context, period *model.SubscriptionPeriod, invoice *model.Invoice) error
	// ApplyPayment 锁定周期后按最早优先分摊付款并写入发票；
	// invoice 的 TotalPrice 与 Paid 由本方法填写
	ApplyPayment(ctx context.Context, subscriptionID string, amount float64, invoice *model.Invoice) error

	// GetByID 预加载用户、训练班（含类别）与按开始日期排序的周期
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	ExistsForUserDivision(ctx context.Context, userID, divisionID string) (bool, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter SubscriptionFilter, offset, limit int) ([]SubscriptionRow, int64, error)
	// ListByDivision 训练班全部订阅，按最近结束日倒序
	ListByDivision(ctx context.Context, divisionID string) ([]SubscriptionRow, error)
	// ListExpiringBetween 最近周期结束日落在 [from, to] 的订阅
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]SubscriptionRow, error)

	ListInvoices(ctx context.Context, subscriptionID string) ([]model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)

	Report(ctx context.Context, from, to time.Time) (*model.SubscriptionReport, error)
}

type subscriptionRepo struct {
	db *gorm.DB
}

// NewSubscriptionRepo 创建 SubscriptionRepository 实例
func NewSubscriptionRepo(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const (
	latestEndDateSQL   = "(SELECT MAX(p.end_date) FROM subscription_periods p WHERE p.subscription_id = subscriptions.subscription_id)"
	totalDueSQL        = "(SELECT COALESCE(SUM(p.price - p.paid_amount), 0) FROM subscription_periods p WHERE p.subscription_id = subscriptions.subscription_id)"
	latestInvoiceIDSQL = "(SELECT i.invoice_id FROM invoices i WHERE i.subscription_id = subscriptions.subscription_id ORDER BY i.time DESC LIMIT 1)"
)

func (r *subscriptionRepo) annotated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).
		Select("subscriptions.*, " +
			latestEndDateSQL + " AS latest_end_date, " +
			totalDueSQL + " AS total_due, " +
			latestInvoiceIDSQL + " AS latest_invoice_id").
		Preload("User").
		Preload("Division").
		Preload("Division.Category")
}

func createInvoice(tx *gorm.DB, invoice *model.Invoice) error {
	if err := tx.Omit("Subscription").Create(invoice).Error; err != nil {
		return err
	}
	return tx.Model(&model.Invoice{}).
		Where("invoice_id = ?", invoice.InvoiceID).
		Pluck("number", &invoice.Number).Error
}

func (r *subscriptionRepo) CreateWithPeriod(ctx context.Context, sub *model.Subscription, period *model.SubscriptionPeriod, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Division", "Periods").Create(sub).Error; err != nil {
			return pkgerrors.TranslatePG(err)
		}
		period.SubscriptionID = sub.SubscriptionID
		if err := tx.Create(period).Error; err != nil {
			return err
		}
		if invoice == nil {
			return nil
		}
		invoice.SubscriptionID = sub.SubscriptionID
		return createInvoice(tx, invoice)
	})
}

func (r *subscriptionRepo) AddPeriod(ctx context.Context, period *model.SubscriptionPeriod, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(period).Error; err != nil {
			return pkgerrors.TranslatePG(err)
		}
		if invoice == nil {
			return nil
		}
		invoice.SubscriptionID = period.SubscriptionID
		return createInvoice(tx, invoice)
	})
}

func (r *subscriptionRepo) ApplyPayment(ctx context.Context, subscriptionID string, amount float64, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var periods []model.SubscriptionPeriod
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("subscription_id = ?", subscriptionID).
			Order("start_date ASC, created_at ASC").
			Find(&periods).Error; err != nil {
			return err
		}
		// 锁内复核，防止并发付款超额
		if err := billing.CheckPayment(periods, amount); err != nil {
			return err
		}

		dueBefore := billing.TotalDue(periods)
		applied, touched := billing.Allocate(periods, amount)
		for _, i := range touched {
			if err := tx.Model(&model.SubscriptionPeriod{}).
				Where("period_id = ?", periods[i].PeriodID).
				Updates(map[string]interface{}{
					"paid_amount": periods[i].PaidAmount,
					"updated_at":  gorm.Expr("NOW()"),
				}).Error; err != nil {
				return err
			}
		}

		invoice.SubscriptionID = subscriptionID
		invoice.TotalPrice = dueBefore
		invoice.Paid = applied
		return createInvoice(tx, invoice)
	})
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Division").
		Preload("Division.Category").
		Preload("Periods", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date ASC, created_at ASC")
		}).
		Where("subscription_id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepo) ExistsForUserDivision(ctx context.Context, userID, divisionID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND division_id = ?", userID, divisionID).
		Count(&n).Error
	return n > 0, err
}

func (r *subscriptionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("subscription_id = ?", id).
		Delete(&model.Subscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *subscriptionRepo) Search(ctx context.Context, f SubscriptionFilter, offset, limit int) ([]SubscriptionRow, int64, error) {
	var rows []SubscriptionRow
	var total int64

	where := func(db *gorm.DB) *gorm.DB {
		if f.UserID != "" {
			db = db.Where("subscriptions.user_id = ?", f.UserID)
		}
		if f.DivisionID != "" {
			db = db.Where("subscriptions.division_id = ?", f.DivisionID)
		}
		if f.SportCategoryID != "" {
			db = db.Where("subscriptions.division_id IN (SELECT division_id FROM divisions WHERE category_id = ?)", f.SportCategoryID)
		}
		if f.Expired != nil {
			if *f.Expired {
				db = db.Where(latestEndDateSQL+" < ?", f.Today)
			} else {
				db = db.Where(latestEndDateSQL+" >= ?", f.Today)
			}
		}
		return db
	}

	if err := where(r.db.WithContext(ctx).Model(&model.Subscription{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := where(r.annotated(ctx)).
		Order("latest_end_date ASC NULLS FIRST").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *subscriptionRepo) ListByDivision(ctx context.Context, divisionID string) ([]SubscriptionRow, error) {
	var rows []SubscriptionRow
	err := r.annotated(ctx).
		Where("subscriptions.division_id = ? AND subscriptions.user_id IS NOT NULL", divisionID).
		Order("latest_end_date DESC NULLS LAST").
		Find(&rows).Error
	return rows, err
}

func (r *subscriptionRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]SubscriptionRow, error) {
	var rows []SubscriptionRow
	err := r.annotated(ctx).
		Where(latestEndDateSQL+" BETWEEN ? AND ?", from, to).
		Order("latest_end_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *subscriptionRepo) ListInvoices(ctx context.Context, subscriptionID string) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("time DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *subscriptionRepo) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Subscription").
		Preload("Subscription.User").
		Preload("Subscription.Division").
		Preload("Subscription.Division.Category").
		Where("invoice_id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Report 新开周期、训练班与训练课三部分汇总
func (r *subscriptionRepo) Report(ctx context.Context, from, to time.Time) (*model.SubscriptionReport, error) {
	report := &model.SubscriptionReport{}
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.SubscriptionPeriod{}).
		Select("COUNT(*) AS new_subs_count, COALESCE(SUM(price), 0) AS total_prices, COALESCE(SUM(paid_amount), 0) AS total_paid_amount").
		Where("start_date BETWEEN ? AND ?", from, to).
		Scan(&report.NewSubs).Error; err != nil {
		return nil, err
	}

	if err := db.Table("divisions d").
		Select(`d.division_id AS division_id, d.name AS name, COALESCE(c.name, '') AS category_name,
			(SELECT COUNT(DISTINCT s.subscription_id) FROM subscriptions s
				JOIN subscription_periods p ON p.subscription_id = s.subscription_id
				WHERE s.division_id = d.division_id AND p.start_date BETWEEN @from AND @to) AS subscriptions_count,
			(SELECT COUNT(*) FROM training_session_records t
				WHERE t.division_id = d.division_id AND t.date BETWEEN @from AND @to) AS number_of_sessions,
			(SELECT COALESCE(SUM(p.price), 0) FROM subscriptions s
				JOIN subscription_periods p ON p.subscription_id = s.subscription_id
				WHERE s.division_id = d.division_id AND p.start_date BETWEEN @from AND @to) AS income_generated`,
			map[string]interface{}{"from": from, "to": to}).
		Joins("LEFT JOIN sport_categories c ON c.category_id = d.category_id").
		Order("income_generated DESC, d.name ASC").
		Scan(&report.Divisions).Error; err != nil {
		return nil, err
	}

	if err := db.Table("individual_attendance_records a").
		Select(`COUNT(*) FILTER (WHERE a.attended) AS attended_count,
			COUNT(*) FILTER (WHERE NOT a.attended) AS absent_count,
			COUNT(DISTINCT a.record_id) AS sessions_count`).
		Joins("JOIN training_session_records t ON t.record_id = a.record_id").
		Where("t.date BETWEEN ? AND ?", from, to).
		Scan(&report.TrainingSessions).Error; err != nil {
		return nil, err
	}

	return report, nil
}
