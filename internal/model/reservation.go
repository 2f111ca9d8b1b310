package model

import "time"

// Reservation 场地预约，对应 reservations
// (facility_id, time_slot_id, day) 唯一
type Reservation struct {
	ReservationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"reservation_id"`
	Number        int64     `gorm:"->;column:number"                               json:"number"`
	UserID        *string   `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	FacilityID    string    `gorm:"type:uuid;not null"                             json:"facility_id"`
	TimeSlotID    *string   `gorm:"type:uuid"                                      json:"time_slot_id,omitempty"`
	Day           time.Time `gorm:"type:date;not null"                             json:"day"`
	Price         float64   `gorm:"type:numeric(10,2);not null"                    json:"price"`
	CreatedBy     *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel

	// 关联
	User     *User     `gorm:"foreignKey:UserID;references:UserID"         json:"user,omitempty"`
	Facility *Facility `gorm:"foreignKey:FacilityID;references:FacilityID" json:"facility,omitempty"`
	TimeSlot *TimeSlot `gorm:"foreignKey:TimeSlotID;references:TimeSlotID" json:"time_slot,omitempty"`
}

// TableName 指定表名
func (Reservation) TableName() string { return "reservations" }
