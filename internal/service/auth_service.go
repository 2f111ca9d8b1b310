package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"club-manager/backend/config"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/metrics"
	"club-manager/backend/pkg/otp"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("手机号或密码错误")
	ErrNoLandingPage      = errors.New("该账号没有可访问的页面，请联系管理员分配权限")
	ErrTokenRevoked       = errors.New("token 已注销")
	ErrInvalidOTP         = errors.New("验证码错误或已过期")
	ErrOTPProvider        = errors.New("验证码服务暂不可用，请稍后再试")
	ErrPasswordMismatch   = errors.New("两次输入的密码不一致")
	ErrResetTokenExpired  = errors.New("重置链接已过期，请重新获取验证码")
	ErrResetTokenInvalid  = errors.New("重置链接无效")
)

// TokenStore Token 黑名单
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Refresh 用 Refresh Token 换新的 Token 对，权限从数据库重新读取
	Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error)
	// Logout 注销当前 Access Token，refreshToken 非空时一并注销
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, pol policy.Policy) (*dto.MeResponse, error)

	RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) error
	VerifyPasswordReset(ctx context.Context, req *dto.PasswordResetVerifyRequest) (*dto.PasswordResetVerifyResponse, error)
	ConfirmPasswordReset(ctx context.Context, req *dto.PasswordResetConfirmRequest) error
}

type authService struct {
	cfg      *config.Config
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	tokens   TokenStore
	verifier otp.Verifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	verifier otp.Verifier,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:      cfg,
		repo:     repo,
		jwtMgr:   jwtMgr,
		tokens:   tokens,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.repo.User.GetByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if !canSignIn(user) || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.User.TouchLastLogin(ctx, user.UserID, s.now()); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("user_id", user.UserID), zap.Error(err))
	}
	s.logger.Info("用户登录", zap.String("user_id", user.UserID), zap.String("landing_page", resp.LandingPage))
	return resp, nil
}

// ────────────────────── Refresh / Logout ──────────────────────

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseTyped(req.RefreshToken, jwt.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !canSignIn(user) {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	// 旧 Refresh Token 只能使用一次
	s.revoke(ctx, claims)
	return resp, nil
}

func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if access != nil {
		s.revoke(ctx, access)
	}
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseTyped(refreshToken, jwt.TokenTypeRefresh); err == nil {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, pol policy.Policy) (*dto.MeResponse, error) {
	user, err := s.repo.User.GetByID(ctx, pol.UserID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询当前用户失败", zap.String("user_id", pol.UserID()), zap.Error(err))
		return nil, err
	}

	resp := &dto.MeResponse{
		User:        toUserResponse(user),
		Operations:  pol.Operations(),
		LandingPage: pol.LandingPage(),
	}
	if pol.IsStaff() {
		if resp.PendingApplications, err = s.repo.User.CountUnconfirmed(ctx); err != nil {
			s.logger.Warn("统计注册申请失败", zap.Error(err))
		}
	}
	return resp, nil
}

// ────────────────────── 密码重置 ──────────────────────

// RequestPasswordReset 只向有效员工发送验证码；其他号码同样返回成功
func (s *authService) RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) error {
	user, err := s.repo.User.GetByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !canSignIn(user) {
		return nil
	}

	if err := s.verifier.Send(ctx, user.Phone); err != nil {
		metrics.OTPRequests.WithLabelValues("send", "error").Inc()
		if errors.Is(err, otp.ErrProvider) {
			return ErrOTPProvider
		}
		return err
	}
	metrics.OTPRequests.WithLabelValues("send", "ok").Inc()
	s.logger.Info("已发送密码重置验证码", zap.String("user_id", user.UserID))
	return nil
}

func (s *authService) VerifyPasswordReset(ctx context.Context, req *dto.PasswordResetVerifyRequest) (*dto.PasswordResetVerifyResponse, error) {
	user, err := s.repo.User.GetByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	if !canSignIn(user) {
		return nil, ErrInvalidOTP
	}

	approved, err := s.verifier.Check(ctx, user.Phone, req.Code)
	if err != nil {
		metrics.OTPRequests.WithLabelValues("check", "error").Inc()
		if errors.Is(err, otp.ErrProvider) {
			return nil, ErrOTPProvider
		}
		return nil, err
	}
	if !approved {
		metrics.OTPRequests.WithLabelValues("check", "rejected").Inc()
		return nil, ErrInvalidOTP
	}
	metrics.OTPRequests.WithLabelValues("check", "ok").Inc()

	token, err := s.jwtMgr.GeneratePasswordResetToken(user.UserID, passwordFingerprint(user.PasswordHash))
	if err != nil {
		s.logger.Error("生成重置 Token 失败", zap.Error(err))
		return nil, err
	}
	return &dto.PasswordResetVerifyResponse{
		Token:     token,
		ExpiresIn: int(s.cfg.Auth.PasswordResetTokenTTL.Seconds()),
	}, nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, req *dto.PasswordResetConfirmRequest) error {
	if req.Password1 != req.Password2 {
		return ErrPasswordMismatch
	}
	claims, err := s.jwtMgr.ParseTyped(req.Token, jwt.TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrResetTokenExpired
		}
		return ErrResetTokenInvalid
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	// 密码已被修改过的 Token 作废
	if claims.Fingerprint != passwordFingerprint(user.PasswordHash) {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdatePassword(ctx, user.UserID, string(hash)); err != nil {
		s.logger.Error("更新密码失败", zap.String("user_id", user.UserID), zap.Error(err))
		return err
	}
	s.logger.Info("密码已重置", zap.String("user_id", user.UserID))
	return nil
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	pol := policy.New(user.UserID, user.IsStaff, user.IsSuperuser, user.Permissions)
	landing := pol.LandingPage()
	if landing == "" {
		return nil, ErrNoLandingPage
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(jwt.Subject{
		UserID:      user.UserID,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		Permissions: []string(user.Permissions),
	})
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		LandingPage:  landing,
		User:         toUserResponse(user),
	}, nil
}

// revoke 拉黑到 Token 自然过期为止
func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if claims.ExpiresAt == nil {
		return
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if err := s.tokens.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
	}
}

// canSignIn 只有启用中的员工可以登录后台
func canSignIn(u *model.User) bool {
	return u.IsActive && (u.IsStaff || u.IsSuperuser)
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
