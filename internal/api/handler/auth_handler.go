package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 员工登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 注销当前 Token，可选地同时注销 Refresh Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	// 请求体可为空
	_ = c.ShouldBindJSON(&req)

	if err := h.authSvc.Logout(c.Request.Context(), getClaims(c), req.RefreshToken); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// Me 当前用户与可执行的操作
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.authSvc.Me(c.Request.Context(), pol)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// RequestPasswordReset 发送密码重置验证码
// POST /api/v1/auth/password-reset
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.authSvc.RequestPasswordReset(c.Request.Context(), &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "如果该号码已注册，验证码将发送到 WhatsApp"})
}

// VerifyPasswordReset 校验验证码并下发重置 Token
// POST /api/v1/auth/password-reset/verify
func (h *AuthHandler) VerifyPasswordReset(c *gin.Context) {
	var req dto.PasswordResetVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.VerifyPasswordReset(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// ConfirmPasswordReset 设置新密码
// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.authSvc.ConfirmPasswordReset(c.Request.Context(), &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleAuthError 认证模块错误码 11xxx
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, err.Error())
	case errors.Is(err, service.ErrNoLandingPage):
		response.Forbidden(c, 11002, err.Error())
	case errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, jwt.ErrTokenInvalid):
		response.Unauthorized(c, 11003, "Token 无效或已注销")
	case errors.Is(err, jwt.ErrTokenExpired):
		response.Unauthorized(c, 11004, "Token 已过期")
	case errors.Is(err, service.ErrInvalidOTP):
		response.BadRequest(c, 11005, err.Error())
	case errors.Is(err, service.ErrOTPProvider):
		response.BadGateway(c, 11006, err.Error())
	case errors.Is(err, service.ErrPasswordMismatch):
		response.BadRequest(c, 11007, err.Error())
	case errors.Is(err, service.ErrResetTokenExpired):
		response.Gone(c, 11008, err.Error())
	case errors.Is(err, service.ErrResetTokenInvalid):
		response.BadRequest(c, 11009, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, err.Error())
	default:
		response.InternalError(c)
	}
}
