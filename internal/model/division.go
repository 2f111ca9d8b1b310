package model

// SportCategory 运动类别，对应 sport_categories
type SportCategory struct {
	CategoryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"category_id"`
	Name       string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (SportCategory) TableName() string { return "sport_categories" }

// Division 训练班，对应 divisions
type Division struct {
	DivisionID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"division_id"`
	CategoryID        string  `gorm:"type:uuid;not null"                             json:"category_id"`
	Name              string  `gorm:"type:varchar(100);not null"                     json:"name"`
	DefaultMonthPrice float64 `gorm:"type:numeric(10,2);not null"                    json:"default_month_price"`
	Suspended         bool    `gorm:"not null;default:false"                         json:"suspended"`
	VersionedModel

	// 关联
	Category     *SportCategory    `gorm:"foreignKey:CategoryID;references:CategoryID" json:"category,omitempty"`
	TrainingDays []TrainingWeekDay `gorm:"foreignKey:DivisionID;references:DivisionID" json:"training_days,omitempty"`
}

// TableName 指定表名
func (Division) TableName() string { return "divisions" }

// DisplayName 类别 - 名称
func (d *Division) DisplayName() string {
	if d.Category != nil {
		return d.Category.Name + " - " + d.Name
	}
	return d.Name
}

// TrainingWeekDay 每周训练时间，对应 training_week_days
// Weekday 与 time.Weekday 一致：0=周日 … 6=周六
type TrainingWeekDay struct {
	TrainingDayID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"training_day_id"`
	DivisionID    string `gorm:"type:uuid;not null;index"                       json:"division_id"`
	Weekday       int    `gorm:"type:smallint;not null"                         json:"weekday"`
	StartTime     string `gorm:"type:time;not null"                             json:"start_time"`
	EndTime       string `gorm:"type:time;not null"                             json:"end_time"`
	BaseModel

	// 关联
	Division *Division `gorm:"foreignKey:DivisionID;references:DivisionID" json:"division,omitempty"`
}

// TableName 指定表名
func (TrainingWeekDay) TableName() string { return "training_week_days" }
