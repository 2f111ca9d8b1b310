package model

import "time"

// 预约向导类型
const (
	WizardSingle = "single"
	WizardWeekly = "weekly"
	WizardUpdate = "update"
)

// 预约向导步骤
const (
	WizardStepSelectDay  = 0
	WizardStepSelectSlot = 1
)

// ReservationWizard 预约向导状态（服务端保存，不落库）
// Step=0 等待选择场地与日期；Step=1 已保存第一步数据，等待选择时间段
type ReservationWizard struct {
	Token     string    `json:"token"`
	Kind      string    `json:"kind"`
	Step      int       `json:"step"`
	OwnerID   string    `json:"owner_id"`
	ExpiresAt time.Time `json:"expires_at"`

	// 第一步数据
	FacilityID    string `json:"facility_id,omitempty"`
	Day           string `json:"day,omitempty"`
	Weeks         int    `json:"weeks,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
}
