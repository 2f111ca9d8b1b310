package model

import "time"

// 性别
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// User 用户（员工与顾客），对应 users
// 以手机号作为登录标识
type User struct {
	UserID       string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Phone        string      `gorm:"type:varchar(10);not null;uniqueIndex"          json:"phone"`
	FullName     string      `gorm:"type:varchar(150);not null"                     json:"full_name"`
	Email        *string     `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	Gender       string      `gorm:"type:char(1);not null"                          json:"gender"`
	BirthDate    *time.Time  `gorm:"type:date"                                      json:"birth_date,omitempty"`
	PasswordHash string      `gorm:"type:varchar(255);not null;default:''"          json:"-"`
	IsStaff      bool        `gorm:"not null;default:false"                         json:"is_staff"`
	IsSuperuser  bool        `gorm:"not null;default:false"                         json:"is_superuser"`
	IsActive     bool        `gorm:"not null;default:true"                          json:"is_active"`
	Confirmed    bool        `gorm:"not null;default:false"                         json:"confirmed"`
	Permissions  StringArray `gorm:"type:text[];not null;default:'{}'"              json:"permissions"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsCustomer 已确认的非员工用户
func (u *User) IsCustomer() bool {
	return !u.IsStaff && !u.IsSuperuser && u.Confirmed
}
