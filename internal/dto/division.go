package dto

// ── 训练班模块 DTO ──

// CreateDivisionRequest 创建训练班
type CreateDivisionRequest struct {
	CategoryID        string  `json:"category_id"         binding:"required,uuid"`
	Name              string  `json:"name"                binding:"required,max=100"`
	DefaultMonthPrice float64 `json:"default_month_price" binding:"min=0"`
}

// UpdateDivisionRequest 更新训练班
type UpdateDivisionRequest struct {
	CategoryID        *string  `json:"category_id"         binding:"omitempty,uuid"`
	Name              *string  `json:"name"                binding:"omitempty,max=100"`
	DefaultMonthPrice *float64 `json:"default_month_price" binding:"omitempty,min=0"`
	Suspended         *bool    `json:"suspended"`
	Version           int      `json:"version"             binding:"required,min=1"`
}

// DivisionListRequest 训练班列表查询
type DivisionListRequest struct {
	IncludeSuspended bool `form:"include_suspended"`
}

// DivisionResponse 训练班信息
type DivisionResponse struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	DisplayName        string                `json:"display_name"`
	Category           *NamedBrief           `json:"category,omitempty"`
	DefaultMonthPrice  float64               `json:"default_month_price"`
	Suspended          bool                  `json:"suspended"`
	SubscriptionsCount int64                 `json:"subscriptions_count"`
	TrainingDays       []TrainingDayResponse `json:"training_days,omitempty"`
	Version            int                   `json:"version"`
}

// DivisionPriceResponse 训练班默认月费
type DivisionPriceResponse struct {
	DivisionID string  `json:"division_id"`
	Price      float64 `json:"price"`
}

// TrainingDayInput 每周训练时间编辑项
type TrainingDayInput struct {
	Weekday   int    `json:"weekday"    binding:"min=0,max=6"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time"   binding:"required,hhmm"`
}

// ReplaceTrainingDaysRequest 整体替换每周训练时间
type ReplaceTrainingDaysRequest struct {
	Days []TrainingDayInput `json:"days" binding:"max=7,dive"`
}

// TrainingDayResponse 每周训练时间
type TrainingDayResponse struct {
	ID        string `json:"id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// TodaySessionResponse 今天的训练课
type TodaySessionResponse struct {
	TrainingDay        TrainingDayResponse `json:"training_day"`
	Division           NamedBrief          `json:"division"`
	SubscriptionsCount int64               `json:"subscriptions_count"`
	// RecordID 今天已记录考勤时非空
	RecordID *string `json:"record_id,omitempty"`
}
