package model

// Organization 俱乐部资料，对应 organization（单行）
type Organization struct {
	Singleton          bool   `gorm:"primaryKey;default:true"           json:"-"`
	Name               string `gorm:"type:varchar(200);not null"        json:"name"`
	Phone              string `gorm:"type:varchar(20);not null"         json:"phone"`
	Address            string `gorm:"type:varchar(300);not null"        json:"address"`
	City               string `gorm:"type:varchar(100);not null"        json:"city"`
	TaxNumber          string `gorm:"type:char(15);not null"            json:"tax_number"`
	CommercialRegister string `gorm:"type:char(14);not null"            json:"commercial_register"`
	LogoURL            string `gorm:"type:varchar(500);not null;default:''" json:"logo_url"`
	BackgroundURL      string `gorm:"type:varchar(500);not null;default:''" json:"background_url"`
	BaseModel
}

// TableName 指定表名
func (Organization) TableName() string { return "organization" }
