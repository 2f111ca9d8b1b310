package model

// FacilityCategory 场地类别，对应 facility_categories
type FacilityCategory struct {
	CategoryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"category_id"`
	Name       string `gorm:"type:varchar(50);not null"                      json:"name"`
	BaseModel
}

// TableName 指定表名
func (FacilityCategory) TableName() string { return "facility_categories" }

// Facility 场地，对应 facilities
type Facility struct {
	FacilityID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"facility_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	CategoryID   *string `gorm:"type:uuid"                                      json:"category_id,omitempty"`
	DefaultPrice float64 `gorm:"type:numeric(10,2);not null;default:0"          json:"default_price"`
	Color        string  `gorm:"type:varchar(7);not null;default:'#000000'"     json:"color"`
	ImageURL     string  `gorm:"type:varchar(500);not null;default:''"          json:"image_url"`
	Suspended    bool    `gorm:"not null;default:false"                         json:"suspended"`
	VersionedModel

	// 关联
	Category  *FacilityCategory `gorm:"foreignKey:CategoryID;references:CategoryID" json:"category,omitempty"`
	TimeSlots []TimeSlot        `gorm:"foreignKey:FacilityID;references:FacilityID" json:"time_slots,omitempty"`
}

// TableName 指定表名
func (Facility) TableName() string { return "facilities" }

// TimeSlot 场地时间段，对应 time_slots
// 结束时间早于开始时间表示跨越午夜
type TimeSlot struct {
	TimeSlotID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_slot_id"`
	FacilityID string `gorm:"type:uuid;not null;index"                       json:"facility_id"`
	StartTime  string `gorm:"type:time;not null"                             json:"start_time"`
	EndTime    string `gorm:"type:time;not null"                             json:"end_time"`
	BaseModel
}

// TableName 指定表名
func (TimeSlot) TableName() string { return "time_slots" }
