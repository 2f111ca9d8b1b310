package dto

// ── 预约模块 DTO ──

// ReservationResponse 预约信息
type ReservationResponse struct {
	ID        string            `json:"id"`
	Number    string            `json:"number"`
	User      *UserBrief        `json:"user,omitempty"`
	Facility  *NamedBrief       `json:"facility,omitempty"`
	Category  *NamedBrief       `json:"category,omitempty"`
	TimeSlot  *TimeSlotResponse `json:"time_slot,omitempty"`
	Day       string            `json:"day"`
	Price     float64           `json:"price"`
	CreatedAt string            `json:"created_at"`
}

// DayBrief 日期条（今天与之后几天）
type DayBrief struct {
	Date    string `json:"date"`
	Weekday int    `json:"weekday"`
	IsToday bool   `json:"is_today"`
}

// UpcomingResponse 近期预约
type UpcomingResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	Days         []DayBrief            `json:"days"`
}

// FacilityFreeSlots 某天某场地的空闲时间段
type FacilityFreeSlots struct {
	Facility  NamedBrief         `json:"facility"`
	Color     string             `json:"color"`
	FreeSlots []TimeSlotResponse `json:"free_slots"`
}

// FreeSlotsResponse 某天全部场地的空闲时间段
type FreeSlotsResponse struct {
	Day        string              `json:"day"`
	Facilities []FacilityFreeSlots `json:"facilities"`
}

// ── 预约向导 ──

// StartWizardRequest 开始向导
type StartWizardRequest struct {
	Kind          string `json:"kind"           binding:"required,oneof=single weekly update"`
	ReservationID string `json:"reservation_id" binding:"omitempty,uuid"`
}

// WizardResponse 向导状态
type WizardResponse struct {
	Token         string `json:"token"`
	Kind          string `json:"kind"`
	Step          int    `json:"step"`
	ExpiresAt     string `json:"expires_at"`
	FacilityID    string `json:"facility_id,omitempty"`
	Day           string `json:"day,omitempty"`
	Weeks         int    `json:"weeks,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
}

// WizardStepRequest 第一步：选择场地与日期（每周预约另需周数；修改预约只需新日期）
type WizardStepRequest struct {
	FacilityID string `json:"facility_id" binding:"omitempty,uuid"`
	Day        string `json:"day"         binding:"required,ymd"`
	Weeks      int    `json:"weeks"       binding:"omitempty,min=2"`
}

// WizardSlotsResponse 第二步可选项
type WizardSlotsResponse struct {
	Wizard        WizardResponse     `json:"wizard"`
	Facility      NamedBrief         `json:"facility"`
	Dates         []string           `json:"dates"`
	FreeSlots     []TimeSlotResponse `json:"free_slots"`
	AllSlots      []TimeSlotResponse `json:"all_slots"`
	DefaultPrice  float64            `json:"default_price"`
	PriceEditable bool               `json:"price_editable"`
	Operations    []string           `json:"operations"`
}

// CompleteWizardRequest 第二步：选择顾客、时间段与价格
type CompleteWizardRequest struct {
	UserID     string   `json:"user_id"      binding:"omitempty,uuid"`
	TimeSlotID string   `json:"time_slot_id" binding:"required,uuid"`
	Price      *float64 `json:"price"        binding:"omitempty,min=0"`
}

// ── 发票与报表 ──

// ReservationInvoiceResponse 预约发票
type ReservationInvoiceResponse struct {
	Number         string                `json:"number"`
	Organization   *OrganizationResponse `json:"organization,omitempty"`
	Reservation    ReservationResponse   `json:"reservation"`
	PriceBeforeVAT float64               `json:"price_before_vat"`
	VAT            float64               `json:"vat"`
	VATRate        float64               `json:"vat_rate"`
	Total          float64               `json:"total"`
	IssuedAt       string                `json:"issued_at"`
}

// ReportPeriodRequest 报表区间选择
type ReportPeriodRequest struct {
	Period  string `form:"period"  binding:"required,oneof=monthly yearly custom"`
	Month   int    `form:"month"   binding:"omitempty,min=1,max=12"`
	Year    int    `form:"year"    binding:"omitempty,min=2000,max=2100"`
	DayFrom string `form:"dayFrom" binding:"omitempty,ymd"`
	DayTo   string `form:"dayTo"   binding:"omitempty,ymd"`
}

// ReportPeriodResponse 解析后的报表区间
type ReportPeriodResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ReportResponse 报表结果，Data 为对应模块的汇总
type ReportResponse struct {
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Data      interface{} `json:"data"`
}
