package dto

// ── 俱乐部资料 DTO ──

// OrganizationRequest 保存俱乐部资料
type OrganizationRequest struct {
	Name               string `json:"name"                binding:"required,max=200"`
	Phone              string `json:"phone"               binding:"required,max=20"`
	Address            string `json:"address"             binding:"required,max=300"`
	City               string `json:"city"                binding:"required,max=100"`
	TaxNumber          string `json:"tax_number"          binding:"required,tax_number"`
	CommercialRegister string `json:"commercial_register" binding:"required,commercial_register"`
	LogoURL            string `json:"logo_url"            binding:"omitempty,url,max=500"`
	BackgroundURL      string `json:"background_url"      binding:"omitempty,url,max=500"`
}

// OrganizationResponse 俱乐部资料
type OrganizationResponse struct {
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	TaxNumber          string `json:"tax_number"`
	CommercialRegister string `json:"commercial_register"`
	LogoURL            string `json:"logo_url"`
	BackgroundURL      string `json:"background_url"`
	UpdatedAt          string `json:"updated_at"`
}
