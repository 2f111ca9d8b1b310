package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club-manager/backend/internal/policy"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/redis"
	"club-manager/backend/pkg/response"
)

// 上下文键
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
	ContextPolicy = "policy"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 通过后把 Claims 与 Policy 注入上下文。rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseTyped(parts[1], jwt.TokenTypeAccess)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, 10006, "Token 已过期")
			} else {
				response.Unauthorized(c, 10002, "Token 无效")
			}
			c.Abort()
			return
		}

		if rdb != nil {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 故障时放行，避免全站不可用
				logger.Warn("查询 Token 黑名单失败", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)
		c.Set(ContextPolicy, policy.New(claims.UserID, claims.IsStaff, claims.IsSuperuser, claims.Permissions))

		c.Next()
	}
}

// RequireStaff 仅员工与超级管理员可访问
func RequireStaff() gin.HandlerFunc {
	return guard(func(p policy.Policy) bool { return p.IsStaff() })
}

// RequireSuperuser 仅超级管理员可访问
func RequireSuperuser() gin.HandlerFunc {
	return guard(func(p policy.Policy) bool { return p.IsSuperuser() })
}

// RequirePermission 持有任一权限即可访问
func RequirePermission(perms ...policy.Permission) gin.HandlerFunc {
	return guard(func(p policy.Policy) bool { return p.AllowsAny(perms...) })
}

func guard(allow func(policy.Policy) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextPolicy)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		pol, ok := v.(policy.Policy)
		if !ok {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		if !allow(pol) {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}
		c.Next()
	}
}
