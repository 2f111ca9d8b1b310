// Package validate 注册业务自定义校验标签到 gin 的 validator 引擎
package validate

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"club-manager/backend/pkg/dateutil"
)

var (
	phoneRe              = regexp.MustCompile(`^05[0-9]{8}$`)
	taxNumberRe          = regexp.MustCompile(`^[0-9]{15}$`)
	commercialRegisterRe = regexp.MustCompile(`^[0-9]{14}$`)
	otpCodeRe            = regexp.MustCompile(`^[0-9]{6}$`)
	colorRe              = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// IsPhone 本地手机号：05 开头共 10 位
func IsPhone(s string) bool { return phoneRe.MatchString(s) }

// IsTaxNumber 税号：15 位数字
func IsTaxNumber(s string) bool { return taxNumberRe.MatchString(s) }

// IsCommercialRegister 商业登记号：14 位数字
func IsCommercialRegister(s string) bool { return commercialRegisterRe.MatchString(s) }

// IsOTPCode 6 位数字验证码
func IsOTPCode(s string) bool { return otpCodeRe.MatchString(s) }

// IsClock HH:MM 或 HH:MM:SS
func IsClock(s string) bool {
	_, err := dateutil.ParseClock(s)
	return err == nil
}

// IsDate YYYY-MM-DD
func IsDate(s string) bool {
	_, err := dateutil.ParseDate(s)
	return err == nil
}

// tags 标签名 → 字符串校验函数
var tags = map[string]func(string) bool{
	"sa_phone":            IsPhone,
	"tax_number":          IsTaxNumber,
	"commercial_register": IsCommercialRegister,
	"otp_code":            IsOTPCode,
	"hhmm":                IsClock,
	"ymd":                 IsDate,
	"hexcolor6":           colorRe.MatchString,
}

// Register 将自定义标签注册到 validator 实例
func Register(v *validator.Validate) error {
	for tag, fn := range tags {
		check := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGin 注册到 gin 默认 binding 引擎
func RegisterGin() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return Register(v)
	}
	return nil
}
