package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OTP      OTPConfig      `mapstructure:"otp"`
	Log      LogConfig      `mapstructure:"log"`
	Business BusinessConfig `mapstructure:"business"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port          int        `mapstructure:"port"`
	BaseURL       string     `mapstructure:"base_url"`
	BodyLimit     int64      `mapstructure:"body_limit"`
	EnableMetrics bool       `mapstructure:"enable_metrics"`
	CORS          CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 分钟
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret              string        `mapstructure:"jwt_secret"`
	AccessTokenTTL         time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL        time.Duration `mapstructure:"refresh_token_ttl"`
	PasswordResetTokenTTL  time.Duration `mapstructure:"password_reset_token_ttl"`
	LoginRateLimit         int           `mapstructure:"login_rate_limit"`
	LoginRateLimitWindow   time.Duration `mapstructure:"login_rate_limit_window"`
	PublicSignupRateLimit  int           `mapstructure:"public_signup_rate_limit"`
	PublicSignupRateWindow time.Duration `mapstructure:"public_signup_rate_window"`
}

// OTPConfig 一次性验证码配置
// provider = twilio 时通过 Twilio Verify 发送 WhatsApp 验证码；
// provider = redis 时本地生成验证码并写入日志（开发环境）
type OTPConfig struct {
	Provider         string        `mapstructure:"provider"`
	CountryCode      string        `mapstructure:"country_code"`
	Channel          string        `mapstructure:"channel"`
	CodeTTL          time.Duration `mapstructure:"code_ttl"`
	TwilioAccountSID string        `mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string        `mapstructure:"twilio_auth_token"`
	TwilioServiceSID string        `mapstructure:"twilio_service_sid"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BusinessConfig 业务规则配置
type BusinessConfig struct {
	Timezone            string        `mapstructure:"timezone"`
	VATRate             float64       `mapstructure:"vat_rate"`
	WizardTTL           time.Duration `mapstructure:"wizard_ttl"`
	MaxWeeklyWeeks      int           `mapstructure:"max_weekly_weeks"`
	ExpiringSoonDays    int           `mapstructure:"expiring_soon_days"`
	AttendanceHistory   int           `mapstructure:"attendance_history_days"`
	MaxSlotsPerFacility int           `mapstructure:"max_slots_per_facility"`
}

// Location 解析业务时区
func (c *BusinessConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkerConfig 定时任务配置（cron 表达式，支持秒）
type WorkerConfig struct {
	ExpiringScanSpec string `mapstructure:"expiring_scan_spec"`
	MetricsAddr      string `mapstructure:"metrics_addr"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅在存在时加载，不覆盖已有环境变量
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("读取 .env 失败: %w", err)
		}
	}

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit", 2<<20)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "club_manager")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Riyadh")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.password_reset_token_ttl", "5m")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.login_rate_limit_window", "1m")
	v.SetDefault("auth.public_signup_rate_limit", 5)
	v.SetDefault("auth.public_signup_rate_window", "10m")

	v.SetDefault("otp.provider", "redis")
	v.SetDefault("otp.country_code", "+966")
	v.SetDefault("otp.channel", "whatsapp")
	v.SetDefault("otp.code_ttl", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("business.timezone", "Asia/Riyadh")
	v.SetDefault("business.vat_rate", 0.15)
	v.SetDefault("business.wizard_ttl", "30m")
	v.SetDefault("business.max_weekly_weeks", 52)
	v.SetDefault("business.expiring_soon_days", 3)
	v.SetDefault("business.attendance_history_days", 30)
	v.SetDefault("business.max_slots_per_facility", 15)

	v.SetDefault("worker.expiring_scan_spec", "0 0 6 * * *")
	v.SetDefault("worker.metrics_addr", ":9091")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CLUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.OTP.Provider {
	case "redis":
	case "twilio":
		if c.OTP.TwilioAccountSID == "" || c.OTP.TwilioAuthToken == "" || c.OTP.TwilioServiceSID == "" {
			return fmt.Errorf("配置校验失败: otp.provider=twilio 时必须提供 account_sid、auth_token 与 service_sid")
		}
	default:
		return fmt.Errorf("配置校验失败: 未知的 otp.provider %q", c.OTP.Provider)
	}
	if c.Business.VATRate <= 0 || c.Business.VATRate >= 1 {
		return fmt.Errorf("配置校验失败: business.vat_rate 必须在 (0,1) 之间")
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: business.timezone 无效: %w", err)
	}
	if c.Business.MaxWeeklyWeeks < 2 {
		return fmt.Errorf("配置校验失败: business.max_weekly_weeks 不能小于 2")
	}
	return nil
}
