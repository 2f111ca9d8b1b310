package dto

// ── 场地模块 DTO ──

// CreateCategoryRequest 创建类别（场地类别与运动类别共用）
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateFacilityRequest 创建场地
type CreateFacilityRequest struct {
	Name         string  `json:"name"          binding:"required,max=100"`
	CategoryID   *string `json:"category_id"   binding:"omitempty,uuid"`
	DefaultPrice float64 `json:"default_price" binding:"min=0"`
	Color        string  `json:"color"         binding:"omitempty,hexcolor6"`
	ImageURL     string  `json:"image_url"     binding:"omitempty,url,max=500"`
}

// UpdateFacilityRequest 更新场地
type UpdateFacilityRequest struct {
	Name         *string  `json:"name"          binding:"omitempty,max=100"`
	CategoryID   *string  `json:"category_id"   binding:"omitempty,uuid"`
	DefaultPrice *float64 `json:"default_price" binding:"omitempty,min=0"`
	Color        *string  `json:"color"         binding:"omitempty,hexcolor6"`
	ImageURL     *string  `json:"image_url"     binding:"omitempty,max=500"`
	Suspended    *bool    `json:"suspended"`
	Version      int      `json:"version"       binding:"required,min=1"`
}

// FacilityListRequest 场地列表查询
type FacilityListRequest struct {
	IncludeSuspended bool `form:"include_suspended"`
}

// FacilityResponse 场地信息
type FacilityResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Category     *NamedBrief        `json:"category,omitempty"`
	DefaultPrice float64            `json:"default_price"`
	Color        string             `json:"color"`
	ImageURL     string             `json:"image_url"`
	Suspended    bool               `json:"suspended"`
	TimeSlots    []TimeSlotResponse `json:"time_slots,omitempty"`
	Version      int                `json:"version"`
	UpdatedAt    string             `json:"updated_at"`
}

// ── 时间段 ──

// TimeSlotInput 时间段编辑项；ID 为空表示新增
type TimeSlotInput struct {
	ID        string `json:"id"         binding:"omitempty,uuid"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time"   binding:"required,hhmm"`
}

// ReplaceTimeSlotsRequest 整体替换场地时间段，未列出的时间段被删除
type ReplaceTimeSlotsRequest struct {
	Slots []TimeSlotInput `json:"slots" binding:"max=15,dive"`
}

// TimeSlotResponse 时间段信息
type TimeSlotResponse struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CalendarRequest 日历导出区间，缺省为今天起 30 天
type CalendarRequest struct {
	From string `form:"from" binding:"omitempty,ymd"`
	To   string `form:"to"   binding:"omitempty,ymd"`
}
