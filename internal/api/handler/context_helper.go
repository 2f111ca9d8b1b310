package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/api/middleware"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/policy"
	pkgerrors "club-manager/backend/pkg/errors"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetPolicy 从上下文中提取当前用户的授权策略
func MustGetPolicy(c *gin.Context) (policy.Policy, bool) {
	v, exists := c.Get(middleware.ContextPolicy)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return policy.Policy{}, false
	}
	pol, ok := v.(policy.Policy)
	if !ok || pol.UserID() == "" {
		response.Unauthorized(c, 10002, "未认证")
		return policy.Policy{}, false
	}
	return pol, true
}

// getClaims 当前 Access Token 的声明，未认证时为 nil
func getClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// bindPage 读取分页参数，非法值回落到默认值
func bindPage(c *gin.Context) *dto.PaginationRequest {
	page := &dto.PaginationRequest{}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
		page.PageSize = v
	}
	return page
}

// sendFile 输出导出文件
func sendFile(c *gin.Context, file *dto.FileResult) {
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// respondCommonError 各模块共用的存储层错误
func respondCommonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10007, err.Error())
	case errors.Is(err, pkgerrors.ErrDuplicate):
		response.Conflict(c, 10008, err.Error())
	case errors.Is(err, pkgerrors.ErrForeignKey):
		response.Conflict(c, 10009, "记录仍被其他数据引用或引用的数据不存在")
	default:
		response.InternalError(c)
	}
}
