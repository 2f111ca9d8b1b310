package jwt

import (
	"testing"
	"time"

	"club-manager/backend/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:             "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:        30 * time.Minute,
		RefreshTokenTTL:       7 * 24 * time.Hour,
		PasswordResetTokenTTL: 5 * time.Minute,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken(Subject{
		UserID:      "user-1",
		IsStaff:     true,
		Permissions: []string{"add_reservation", "change_price"},
	})
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("期望 UserID=user-1，实际=%s", claims.UserID)
	}
	if !claims.IsStaff || claims.IsSuperuser {
		t.Errorf("期望 IsStaff=true IsSuperuser=false，实际=%v/%v", claims.IsStaff, claims.IsSuperuser)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[1] != "change_price" {
		t.Errorf("权限快照不正确: %v", claims.Permissions)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("期望 TokenType=access，实际=%s", claims.TokenType)
	}
	if claims.Issuer != "club-manager" {
		t.Errorf("期望 Issuer=club-manager，实际=%s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken 失败: %v", err)
	}

	claims, err := m.ParseTyped(token, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("ParseTyped 失败: %v", err)
	}
	if len(claims.Permissions) != 0 {
		t.Error("Refresh Token 不应携带权限")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 6*24*time.Hour || ttl > 8*24*time.Hour {
		t.Errorf("RefreshToken TTL 期望约7天，实际=%v", ttl)
	}
}

func TestGeneratePasswordResetToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GeneratePasswordResetToken("user-1", "abc123")
	if err != nil {
		t.Fatalf("GeneratePasswordResetToken 失败: %v", err)
	}

	claims, err := m.ParseTyped(token, TokenTypePasswordReset)
	if err != nil {
		t.Fatalf("ParseTyped 失败: %v", err)
	}
	if claims.Fingerprint != "abc123" {
		t.Errorf("期望 Fingerprint=abc123，实际=%s", claims.Fingerprint)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 5*time.Minute {
		t.Errorf("重置 Token 有效期不应超过 5 分钟，实际=%v", ttl)
	}

	if _, err := m.ParseTyped(token, TokenTypeAccess); err != ErrTokenInvalid {
		t.Errorf("类型不符应返回 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	m := newTestManager()

	_, err := m.ParseToken("invalid.token.string")
	if err == nil {
		t.Error("期望解析无效 token 返回错误")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{
		JWTSecret:      "different-secret-key",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, _ := m1.GenerateAccessToken(Subject{UserID: "user-1"})
	if _, err := m2.ParseToken(token); err == nil {
		t.Error("不同密钥签名的 token 不应通过验证")
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -time.Minute,
	})

	token, _ := m.GenerateAccessToken(Subject{UserID: "user-1"})

	_, err := m.ParseToken(token)
	if err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}
