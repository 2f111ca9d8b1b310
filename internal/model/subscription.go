package model

import "time"

// Subscription 订阅，对应 subscriptions
// (user_id, division_id) 唯一
type Subscription struct {
	SubscriptionID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subscription_id"`
	UserID         *string `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	DivisionID     *string `gorm:"type:uuid"                                      json:"division_id,omitempty"`
	CreatedBy      *string `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel

	// 关联
	User     *User                `gorm:"foreignKey:UserID;references:UserID"                 json:"user,omitempty"`
	Division *Division            `gorm:"foreignKey:DivisionID;references:DivisionID"         json:"division,omitempty"`
	Periods  []SubscriptionPeriod `gorm:"foreignKey:SubscriptionID;references:SubscriptionID" json:"periods,omitempty"`
}

// TableName 指定表名
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionPeriod 计费周期，对应 subscription_periods
type SubscriptionPeriod struct {
	PeriodID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	SubscriptionID string    `gorm:"type:uuid;not null;index"                       json:"subscription_id"`
	StartDate      time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate        time.Time `gorm:"type:date;not null"                             json:"end_date"`
	Price          float64   `gorm:"type:numeric(10,2);not null"                    json:"price"`
	PaidAmount     float64   `gorm:"type:numeric(10,2);not null;default:0"          json:"paid_amount"`
	BaseModel
}

// TableName 指定表名
func (SubscriptionPeriod) TableName() string { return "subscription_periods" }

// Due 未付金额
func (p *SubscriptionPeriod) Due() float64 {
	return p.Price - p.PaidAmount
}

// 发票动作
const (
	InvoiceActionNew     = "new_subscription"
	InvoiceActionPayment = "payment"
	InvoiceActionExtend  = "extension"
)

// Invoice 订阅发票（操作审计），对应 invoices
type Invoice struct {
	InvoiceID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"invoice_id"`
	Number         int64     `gorm:"->;column:number"                               json:"number"`
	SubscriptionID string    `gorm:"type:uuid;not null;index"                       json:"subscription_id"`
	TotalPrice     float64   `gorm:"type:numeric(10,2);not null"                    json:"total_price"`
	Paid           float64   `gorm:"type:numeric(10,2);not null"                    json:"paid"`
	Time           time.Time `gorm:"not null"                                       json:"time"`
	Action         string    `gorm:"type:varchar(30);not null"                      json:"action"`
	CreatedBy      *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`

	// 关联
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID;references:SubscriptionID" json:"subscription,omitempty"`
}

// TableName 指定表名
func (Invoice) TableName() string { return "invoices" }
