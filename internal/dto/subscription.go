package dto

// ── 订阅模块 DTO ──

// CreateSubscriptionRequest 新建订阅
type CreateSubscriptionRequest struct {
	UserID     string `json:"user_id"     binding:"required,uuid"`
	DivisionID string `json:"division_id" binding:"required,uuid"`
	StartDate  string `json:"start_date"  binding:"required,ymd"`
	Months     int    `json:"months"      binding:"required,min=1,max=24"`
	// MonthPrice 月费，缺省取训练班默认月费；仅有改价权限时生效
	MonthPrice  *float64 `json:"month_price"  binding:"omitempty,min=0"`
	InitialPaid float64  `json:"initial_paid" binding:"min=0"`
}

// ExtendSubscriptionRequest 续订
type ExtendSubscriptionRequest struct {
	// StartDate 缺省为最近结束日与今天中较晚者
	StartDate   string   `json:"start_date"   binding:"omitempty,ymd"`
	Months      int      `json:"months"       binding:"required,min=1,max=24"`
	MonthPrice  *float64 `json:"month_price"  binding:"omitempty,min=0"`
	InitialPaid float64  `json:"initial_paid" binding:"min=0"`
}

// PaymentRequest 付款
type PaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,min=1"`
}

// SubscriptionSearchRequest 订阅搜索；无法解析的参数视为未提供
type SubscriptionSearchRequest struct {
	PaginationRequest
	User          string `form:"user"`
	Division      string `form:"division"`
	SportCategory string `form:"sportCategory"`
	Expired       string `form:"expired"`
}

// PeriodResponse 计费周期
type PeriodResponse struct {
	ID         string  `json:"id"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Price      float64 `json:"price"`
	PaidAmount float64 `json:"paid_amount"`
	Due        float64 `json:"due"`
}

// SubscriptionResponse 订阅信息
type SubscriptionResponse struct {
	ID              string           `json:"id"`
	User            *UserBrief       `json:"user,omitempty"`
	Division        *NamedBrief      `json:"division,omitempty"`
	LatestEndDate   *string          `json:"latest_end_date,omitempty"`
	TotalDue        float64          `json:"total_due"`
	Expired         bool             `json:"expired"`
	ExpiringSoon    bool             `json:"expiring_soon"`
	LatestInvoiceID *string          `json:"latest_invoice_id,omitempty"`
	Periods         []PeriodResponse `json:"periods,omitempty"`
	CreatedAt       string           `json:"created_at"`
}

// InvoiceResponse 订阅发票（列表项）
type InvoiceResponse struct {
	ID         string  `json:"id"`
	Number     string  `json:"number"`
	Action     string  `json:"action"`
	TotalPrice float64 `json:"total_price"`
	Paid       float64 `json:"paid"`
	Time       string  `json:"time"`
}

// SubscriptionMutationResponse 创建、续订、付款的结果
type SubscriptionMutationResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	Invoice      *InvoiceResponse     `json:"invoice,omitempty"`
}

// InvoiceDocumentResponse 订阅发票详情
type InvoiceDocumentResponse struct {
	Invoice        InvoiceResponse       `json:"invoice"`
	Organization   *OrganizationResponse `json:"organization,omitempty"`
	User           *UserBrief            `json:"user,omitempty"`
	Division       *NamedBrief           `json:"division,omitempty"`
	PriceBeforeVAT float64               `json:"price_before_vat"`
	VAT            float64               `json:"vat"`
	VATRate        float64               `json:"vat_rate"`
	Remaining      float64               `json:"remaining"`
}

// AttendanceHistoryEntry 个人考勤记录
type AttendanceHistoryEntry struct {
	RecordID string `json:"record_id"`
	Date     string `json:"date"`
	Attended bool   `json:"attended"`
}

// AttendanceHistoryResponse 订阅者近期考勤
type AttendanceHistoryResponse struct {
	Subscription  SubscriptionResponse     `json:"subscription"`
	Since         string                   `json:"since"`
	Records       []AttendanceHistoryEntry `json:"records"`
	TotalSessions int                      `json:"total_sessions"`
	Attended      int                      `json:"attended"`
}
