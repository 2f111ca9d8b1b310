package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"club-manager/backend/config"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/policy"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/otp"
)

// ── Fake TokenStore / Verifier ──

type fakeTokenStore struct {
	blacklist map[string]time.Duration
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{blacklist: make(map[string]time.Duration)}
}

func (f *fakeTokenStore) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.blacklist[jti] = ttl
	return nil
}

func (f *fakeTokenStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := f.blacklist[jti]
	return ok, nil
}

type fakeVerifier struct {
	sent    []string
	code    string
	sendErr error
}

func (f *fakeVerifier) Send(_ context.Context, phone string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, phone)
	return nil
}

func (f *fakeVerifier) Check(_ context.Context, _, code string) (bool, error) {
	return code == f.code, nil
}

// ── 测试辅助 ──

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:        30 * time.Minute,
			RefreshTokenTTL:       7 * 24 * time.Hour,
			PasswordResetTokenTTL: 5 * time.Minute,
		},
	}
}

type authFixture struct {
	svc      AuthService
	repos    *testRepos
	tokens   *fakeTokenStore
	verifier *fakeVerifier
	jwtMgr   *jwt.Manager
}

func setupTestAuthService(cfg *config.Config) *authFixture {
	repos, repo := newTestRepos()
	tokens := newFakeTokenStore()
	verifier := &fakeVerifier{code: "123456"}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	return &authFixture{
		svc:      NewAuthService(cfg, repo, jwtMgr, tokens, verifier, zap.NewNop()),
		repos:    repos,
		tokens:   tokens,
		verifier: verifier,
		jwtMgr:   jwtMgr,
	}
}

func seedStaff(t *testing.T, m *testRepos, phone, password string, perms ...string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	u := &model.User{
		UserID:       "staff-" + phone,
		Phone:        phone,
		FullName:     "员工" + phone,
		Gender:       model.GenderFemale,
		PasswordHash: string(hash),
		IsStaff:      true,
		IsActive:     true,
		Confirmed:    true,
		Permissions:  model.StringArray(perms),
	}
	if err := m.user.Create(context.Background(), u); err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}
	return u
}

// ── Login ──

func TestAuthService_Login_Success(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))

	resp, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("Token 不应为空")
	}
	if resp.LandingPage != "reservations" {
		t.Errorf("期望落地页 reservations，实际: %s", resp.LandingPage)
	}
	if resp.ExpiresIn != 1800 {
		t.Errorf("期望 ExpiresIn=1800，实际: %d", resp.ExpiresIn)
	}

	claims, err := f.jwtMgr.ParseTyped(resp.AccessToken, jwt.TokenTypeAccess)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if len(claims.Permissions) != 1 || claims.Permissions[0] != string(policy.AddReservation) {
		t.Errorf("AccessToken 应携带权限快照，实际: %v", claims.Permissions)
	}

	u, _ := f.repos.user.GetByPhone(context.Background(), "0512345678")
	if u.LastLogin == nil {
		t.Error("登录后应记录最后登录时间")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))

	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownPhone(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())

	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0599999999", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_CustomerRejected(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	u := seedStaff(t, f.repos, "0512345678", "Password123")
	u.IsStaff = false

	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("顾客不可登录，期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_InactiveRejected(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	u := seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))
	u.IsActive = false

	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("停用账号不可登录，期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_NoLandingPage(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "Password123", string(policy.ChangePrice))

	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	if !errors.Is(err, ErrNoLandingPage) {
		t.Errorf("期望 ErrNoLandingPage，实际: %v", err)
	}
}

func TestAuthService_Login_SuperuserLandsOnStaff(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	u := seedStaff(t, f.repos, "0512345678", "Password123")
	u.IsSuperuser = true

	resp, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if resp.LandingPage != "staff" {
		t.Errorf("超级管理员落地页应为 staff，实际: %s", resp.LandingPage)
	}
}

// ── Refresh / Logout ──

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	u := seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))

	login, err := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	// 刷新前修改权限，新 Token 应反映数据库中的权限
	u.Permissions = model.StringArray{string(policy.AddSubscription)}

	refreshed, err := f.svc.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if refreshed.LandingPage != "subscriptions" {
		t.Errorf("期望落地页 subscriptions，实际: %s", refreshed.LandingPage)
	}

	_, err = f.svc.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("旧 Refresh Token 只能使用一次，期望 ErrTokenRevoked，实际: %v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))

	login, _ := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	_, err := f.svc.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: login.AccessToken})
	if !errors.Is(err, jwt.ErrTokenInvalid) {
		t.Errorf("Access Token 不能用于刷新，期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestAuthService_Logout_BlacklistsBothTokens(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))

	login, _ := f.svc.Login(context.Background(), &dto.LoginRequest{Phone: "0512345678", Password: "Password123"})
	access, err := f.jwtMgr.ParseTyped(login.AccessToken, jwt.TokenTypeAccess)
	if err != nil {
		t.Fatalf("解析 AccessToken 失败: %v", err)
	}

	if err := f.svc.Logout(context.Background(), access, login.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if len(f.tokens.blacklist) != 2 {
		t.Errorf("期望拉黑 2 个 Token，实际: %d", len(f.tokens.blacklist))
	}
	if ttl := f.tokens.blacklist[access.ID]; ttl <= 0 || ttl > 30*time.Minute {
		t.Errorf("黑名单 TTL 应为 Token 剩余有效期，实际: %v", ttl)
	}
}

// ── Me ──

func TestAuthService_Me_CountsApplications(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	u := seedStaff(t, f.repos, "0512345678", "Password123", string(policy.AddReservation))
	_ = f.repos.user.Create(context.Background(), &model.User{Phone: "0500000001", FullName: "待审核", Gender: model.GenderMale, IsActive: true})

	pol := policy.New(u.UserID, true, false, []string(u.Permissions))
	me, err := f.svc.Me(context.Background(), pol)
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if me.PendingApplications != 1 {
		t.Errorf("期望 1 个待审核申请，实际: %d", me.PendingApplications)
	}
	if me.LandingPage != "reservations" {
		t.Errorf("期望落地页 reservations，实际: %s", me.LandingPage)
	}
}

// ── 密码重置 ──

func TestAuthService_PasswordReset_FullFlow(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "OldPassword1", string(policy.AddReservation))
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, &dto.PasswordResetRequest{Phone: "0512345678"}); err != nil {
		t.Fatalf("RequestPasswordReset 应成功: %v", err)
	}
	if len(f.verifier.sent) != 1 {
		t.Fatalf("应发送 1 条验证码，实际: %d", len(f.verifier.sent))
	}

	verified, err := f.svc.VerifyPasswordReset(ctx, &dto.PasswordResetVerifyRequest{Phone: "0512345678", Code: "123456"})
	if err != nil {
		t.Fatalf("VerifyPasswordReset 应成功: %v", err)
	}
	if verified.ExpiresIn != 300 {
		t.Errorf("期望 ExpiresIn=300，实际: %d", verified.ExpiresIn)
	}

	err = f.svc.ConfirmPasswordReset(ctx, &dto.PasswordResetConfirmRequest{
		Token: verified.Token, Password1: "NewPassword1", Password2: "NewPassword1",
	})
	if err != nil {
		t.Fatalf("ConfirmPasswordReset 应成功: %v", err)
	}

	if _, err := f.svc.Login(ctx, &dto.LoginRequest{Phone: "0512345678", Password: "NewPassword1"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}

	// 同一个 Token 不能再次使用：密码已变更，指纹不再匹配
	err = f.svc.ConfirmPasswordReset(ctx, &dto.PasswordResetConfirmRequest{
		Token: verified.Token, Password1: "AnotherPass1", Password2: "AnotherPass1",
	})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("期望 ErrResetTokenInvalid，实际: %v", err)
	}
}

func TestAuthService_RequestPasswordReset_UnknownPhoneSilent(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())

	if err := f.svc.RequestPasswordReset(context.Background(), &dto.PasswordResetRequest{Phone: "0599999999"}); err != nil {
		t.Errorf("未知号码应静默成功，实际: %v", err)
	}
	if len(f.verifier.sent) != 0 {
		t.Error("未知号码不应发送验证码")
	}
}

func TestAuthService_RequestPasswordReset_ProviderDown(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "OldPassword1", string(policy.AddReservation))
	f.verifier.sendErr = otp.ErrProvider

	err := f.svc.RequestPasswordReset(context.Background(), &dto.PasswordResetRequest{Phone: "0512345678"})
	if !errors.Is(err, ErrOTPProvider) {
		t.Errorf("期望 ErrOTPProvider，实际: %v", err)
	}
}

func TestAuthService_VerifyPasswordReset_WrongCode(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())
	seedStaff(t, f.repos, "0512345678", "OldPassword1", string(policy.AddReservation))

	_, err := f.svc.VerifyPasswordReset(context.Background(), &dto.PasswordResetVerifyRequest{Phone: "0512345678", Code: "000000"})
	if !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("期望 ErrInvalidOTP，实际: %v", err)
	}
}

func TestAuthService_ConfirmPasswordReset_Mismatch(t *testing.T) {
	f := setupTestAuthService(testAuthConfig())

	err := f.svc.ConfirmPasswordReset(context.Background(), &dto.PasswordResetConfirmRequest{
		Token: "irrelevant", Password1: "Password123", Password2: "Password124",
	})
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("期望 ErrPasswordMismatch，实际: %v", err)
	}
}

func TestAuthService_ConfirmPasswordReset_Expired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Auth.PasswordResetTokenTTL = -time.Minute
	f := setupTestAuthService(cfg)
	u := seedStaff(t, f.repos, "0512345678", "OldPassword1", string(policy.AddReservation))

	token, err := f.jwtMgr.GeneratePasswordResetToken(u.UserID, passwordFingerprint(u.PasswordHash))
	if err != nil {
		t.Fatalf("生成重置 Token 失败: %v", err)
	}
	err = f.svc.ConfirmPasswordReset(context.Background(), &dto.PasswordResetConfirmRequest{
		Token: token, Password1: "NewPassword1", Password2: "NewPassword1",
	})
	if !errors.Is(err, ErrResetTokenExpired) {
		t.Errorf("期望 ErrResetTokenExpired，实际: %v", err)
	}
}
