package validate

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Phone    string `validate:"sa_phone"`
	Tax      string `validate:"omitempty,tax_number"`
	Register string `validate:"omitempty,commercial_register"`
	Code     string `validate:"omitempty,otp_code"`
	Start    string `validate:"omitempty,hhmm"`
	Day      string `validate:"omitempty,ymd"`
	Color    string `validate:"omitempty,hexcolor6"`
}

func newValidator(t *testing.T) *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
	return v
}

func TestRegister_Valid(t *testing.T) {
	v := newValidator(t)
	s := sample{
		Phone:    "0551234567",
		Tax:      "300000000000003",
		Register: "10100000000001",
		Code:     "123456",
		Start:    "22:30",
		Day:      "2024-02-29",
		Color:    "#1a2B3c",
	}
	if err := v.Struct(s); err != nil {
		t.Errorf("期望校验通过，实际: %v", err)
	}
}

func TestRegister_Invalid(t *testing.T) {
	v := newValidator(t)
	cases := []sample{
		{Phone: "0651234567"},
		{Phone: "055123456"},
		{Phone: "0551234567", Tax: "12345"},
		{Phone: "0551234567", Register: "1010000000000a"},
		{Phone: "0551234567", Code: "12345"},
		{Phone: "0551234567", Start: "25:00"},
		{Phone: "0551234567", Day: "2023-02-30"},
		{Phone: "0551234567", Color: "red"},
	}
	for i, c := range cases {
		if err := v.Struct(c); err == nil {
			t.Errorf("case %d 期望校验失败: %+v", i, c)
		}
	}
}

func TestIsPhone(t *testing.T) {
	if !IsPhone("0500000000") {
		t.Error("0500000000 应合法")
	}
	if IsPhone("+966500000000") {
		t.Error("国际格式不应通过本地手机号校验")
	}
}
