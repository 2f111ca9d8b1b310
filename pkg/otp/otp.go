// Package otp 一次性验证码发送与校验
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
	"go.uber.org/zap"

	"club-manager/backend/config"
	"club-manager/backend/pkg/redis"
)

var (
	// ErrProvider 验证码服务调用失败
	ErrProvider = errors.New("验证码服务暂不可用")
)

// Verifier 验证码发送与校验接口
type Verifier interface {
	// Send 向手机号发送验证码
	Send(ctx context.Context, phone string) error
	// Check 校验验证码，approved=false 表示不匹配或已过期
	Check(ctx context.Context, phone, code string) (bool, error)
}

// InternationalNumber 本地号码（0 开头）转国际格式
func InternationalNumber(countryCode, phone string) string {
	return countryCode + strings.TrimPrefix(phone, "0")
}

// New 根据配置创建 Verifier
func New(cfg *config.OTPConfig, rdb *redis.Client, logger *zap.Logger) (Verifier, error) {
	switch cfg.Provider {
	case "twilio":
		return NewTwilioVerifier(cfg, logger), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("otp.provider=redis 需要可用的 Redis")
		}
		return NewStoreVerifier(rdb, cfg.CodeTTL, logger), nil
	default:
		return nil, fmt.Errorf("未知的 otp.provider %q", cfg.Provider)
	}
}

// ── Twilio Verify ──

// TwilioVerifier 通过 Twilio Verify 发送 WhatsApp / SMS 验证码
type TwilioVerifier struct {
	client      *twilio.RestClient
	serviceSID  string
	countryCode string
	channel     string
	logger      *zap.Logger
}

// NewTwilioVerifier 创建 TwilioVerifier
func NewTwilioVerifier(cfg *config.OTPConfig, logger *zap.Logger) *TwilioVerifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	channel := cfg.Channel
	if channel == "" {
		channel = "whatsapp"
	}
	return &TwilioVerifier{
		client:      client,
		serviceSID:  cfg.TwilioServiceSID,
		countryCode: cfg.CountryCode,
		channel:     channel,
		logger:      logger,
	}
}

func (v *TwilioVerifier) Send(_ context.Context, phone string) error {
	params := &verify.CreateVerificationParams{}
	params.SetTo(InternationalNumber(v.countryCode, phone))
	params.SetChannel(v.channel)

	resp, err := v.client.VerifyV2.CreateVerification(v.serviceSID, params)
	if err != nil {
		v.logger.Warn("发送验证码失败", zap.String("phone", phone), zap.Error(err))
		return ErrProvider
	}
	if resp.Status == nil || *resp.Status != "pending" {
		return ErrProvider
	}
	return nil
}

func (v *TwilioVerifier) Check(_ context.Context, phone, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(InternationalNumber(v.countryCode, phone))
	params.SetCode(code)

	resp, err := v.client.VerifyV2.CreateVerificationCheck(v.serviceSID, params)
	if err != nil {
		v.logger.Warn("校验验证码失败", zap.String("phone", phone), zap.Error(err))
		return false, ErrProvider
	}
	return resp.Status != nil && *resp.Status == "approved", nil
}

// ── 本地存储（开发环境） ──

// CodeStore 验证码存储
type CodeStore interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

const codePrefix = "otp:code:"

// StoreVerifier 生成 6 位验证码写入存储并记录日志，不对外发送
type StoreVerifier struct {
	store  CodeStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewStoreVerifier 创建 StoreVerifier
func NewStoreVerifier(store CodeStore, ttl time.Duration, logger *zap.Logger) *StoreVerifier {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StoreVerifier{store: store, ttl: ttl, logger: logger}
}

func (v *StoreVerifier) Send(ctx context.Context, phone string) error {
	code, err := randomCode()
	if err != nil {
		return ErrProvider
	}
	if err := v.store.SetString(ctx, codePrefix+phone, code, v.ttl); err != nil {
		v.logger.Error("写入验证码失败", zap.String("phone", phone), zap.Error(err))
		return ErrProvider
	}
	v.logger.Info("开发环境验证码", zap.String("phone", phone), zap.String("code", code))
	return nil
}

func (v *StoreVerifier) Check(ctx context.Context, phone, code string) (bool, error) {
	stored, err := v.store.GetString(ctx, codePrefix+phone)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return false, nil
		}
		return false, ErrProvider
	}
	if stored != code {
		return false, nil
	}
	_ = v.store.Del(ctx, codePrefix+phone)
	return true, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
