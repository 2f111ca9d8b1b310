package dto

// ── 用户模块 DTO ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID          string   `json:"id"`
	Phone       string   `json:"phone"`
	FullName    string   `json:"full_name"`
	Email       *string  `json:"email,omitempty"`
	Gender      string   `json:"gender"`
	BirthDate   *string  `json:"birth_date,omitempty"`
	IsStaff     bool     `json:"is_staff"`
	IsSuperuser bool     `json:"is_superuser"`
	IsActive    bool     `json:"is_active"`
	Confirmed   bool     `json:"confirmed"`
	Permissions []string `json:"permissions"`
	LastLogin   *string  `json:"last_login,omitempty"`
	Version     int      `json:"version"`
	CreatedAt   string   `json:"created_at"`
}

// CreateStaffRequest 创建员工
type CreateStaffRequest struct {
	Phone       string   `json:"phone"        binding:"required,sa_phone"`
	FullName    string   `json:"full_name"    binding:"required,max=150"`
	Gender      string   `json:"gender"       binding:"required,oneof=M F"`
	Email       *string  `json:"email"        binding:"omitempty,email"`
	Password    string   `json:"password"     binding:"required,min=8,max=64"`
	IsSuperuser bool     `json:"is_superuser"`
	Permissions []string `json:"permissions"`
}

// UpdateStaffRequest 修改员工资料
type UpdateStaffRequest struct {
	Phone    *string `json:"phone"     binding:"omitempty,sa_phone"`
	FullName *string `json:"full_name" binding:"omitempty,max=150"`
	IsActive *bool   `json:"is_active"`
	Version  int     `json:"version"   binding:"required,min=1"`
}

// UpdatePermissionsRequest 修改员工权限
type UpdatePermissionsRequest struct {
	IsSuperuser bool     `json:"is_superuser"`
	Permissions []string `json:"permissions"`
	Version     int      `json:"version" binding:"required,min=1"`
}

// CreateCustomerRequest 员工录入顾客（直接确认）
type CreateCustomerRequest struct {
	Phone     string  `json:"phone"      binding:"required,sa_phone"`
	FullName  string  `json:"full_name"  binding:"required,max=150"`
	Gender    string  `json:"gender"     binding:"required,oneof=M F"`
	Email     *string `json:"email"      binding:"omitempty,email"`
	BirthDate *string `json:"birth_date" binding:"omitempty,ymd"`
}

// SignupRequest 顾客自助注册（待员工确认）
type SignupRequest = CreateCustomerRequest

// CustomerListRequest 顾客列表查询
type CustomerListRequest struct {
	PaginationRequest
	Query string `form:"q" binding:"omitempty,max=100"`
}

// ResetPasswordResponse 管理员重置员工密码后返回的临时密码
type ResetPasswordResponse struct {
	TemporaryPassword string `json:"temporary_password"`
}

// ImportCustomerError 导入失败的行
type ImportCustomerError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportCustomerResponse 顾客批量导入结果
type ImportCustomerResponse struct {
	Total   int                   `json:"total"`
	Success int                   `json:"success"`
	Failed  int                   `json:"failed"`
	Errors  []ImportCustomerError `json:"errors,omitempty"`
}
