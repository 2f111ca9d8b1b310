package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Phone    string `json:"phone"    binding:"required,sa_phone"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新 Token 请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	LandingPage  string       `json:"landing_page"`
	User         UserResponse `json:"user"`
}

// MeResponse 当前用户信息（GET /auth/me）
type MeResponse struct {
	User        UserResponse `json:"user"`
	Operations  []string     `json:"operations"`
	LandingPage string       `json:"landing_page"`
	// PendingApplications 待审核的顾客注册数，仅员工可见
	PendingApplications int64 `json:"pending_applications"`
}

// ── 密码重置 ──

// PasswordResetRequest 请求发送验证码
type PasswordResetRequest struct {
	Phone string `json:"phone" binding:"required,sa_phone"`
}

// PasswordResetVerifyRequest 校验验证码
type PasswordResetVerifyRequest struct {
	Phone string `json:"phone" binding:"required,sa_phone"`
	Code  string `json:"code"  binding:"required,otp_code"`
}

// PasswordResetVerifyResponse 校验成功后下发的重置 Token
type PasswordResetVerifyResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// PasswordResetConfirmRequest 设置新密码
type PasswordResetConfirmRequest struct {
	Token     string `json:"token"     binding:"required"`
	Password1 string `json:"password1" binding:"required,min=8,max=64"`
	Password2 string `json:"password2" binding:"required"`
}
