package model

import "time"

// TrainingSessionRecord 训练课考勤记录，对应 training_session_records
// 每个训练班每天最多一条
type TrainingSessionRecord struct {
	RecordID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	DivisionID *string   `gorm:"type:uuid"                                      json:"division_id,omitempty"`
	Date       time.Time `gorm:"type:date;not null"                             json:"date"`
	CreatedBy  *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel

	// 关联
	Division          *Division                    `gorm:"foreignKey:DivisionID;references:DivisionID" json:"division,omitempty"`
	IndividualRecords []IndividualAttendanceRecord `gorm:"foreignKey:RecordID;references:RecordID"     json:"individual_records,omitempty"`
}

// TableName 指定表名
func (TrainingSessionRecord) TableName() string { return "training_session_records" }

// IndividualAttendanceRecord 个人考勤，对应 individual_attendance_records
type IndividualAttendanceRecord struct {
	ID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RecordID string `gorm:"type:uuid;not null;index"                       json:"record_id"`
	UserID   string `gorm:"type:uuid;not null"                             json:"user_id"`
	Attended bool   `gorm:"not null;default:false"                         json:"attended"`

	// 关联
	User   *User                  `gorm:"foreignKey:UserID;references:UserID"     json:"user,omitempty"`
	Record *TrainingSessionRecord `gorm:"foreignKey:RecordID;references:RecordID" json:"record,omitempty"`
}

// TableName 指定表名
func (IndividualAttendanceRecord) TableName() string { return "individual_attendance_records" }
