package service

import (
	"net/url"
	"testing"

	"club-manager/backend/internal/model"
	"club-manager/backend/pkg/dateutil"
)

const (
	testFacilityID = "3f2b8c1e-6d4a-4b5e-9f1a-2c3d4e5f6a7b"
	testCategoryID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func TestParseReservationSearch_Defaults(t *testing.T) {
	f := ParseReservationSearch(url.Values{})
	if f.FacilityID != "" || f.CategoryID != "" || f.UserID != "" || f.Gender != "" ||
		f.DayFrom != nil || f.DayTo != nil || f.PriceFrom != nil || f.PriceTo != nil ||
		f.PriceLt != nil || f.PriceGt != nil {
		t.Errorf("无参数时不应有任何过滤: %+v", f)
	}
}

func TestParseReservationSearch_UnparseableBecomesAbsent(t *testing.T) {
	f := ParseReservationSearch(url.Values{
		"facility":      {"abc"},
		"user":          {"12"},
		"day":           {"2024-13-40"},
		"price":         {"cheap"},
		"searchByDay":   {"sometime"},
		"searchByPrice": {"free"},
		"gender":        {"other"},
	})
	if f.FacilityID != "" || f.UserID != "" {
		t.Errorf("无效 ID 应视为未提供: %+v", f)
	}
	if f.DayFrom != nil || f.DayTo != nil {
		t.Error("无效日期应视为未提供")
	}
	if f.PriceFrom != nil || f.PriceTo != nil {
		t.Error("无效价格应视为未提供")
	}
	if f.Gender != "" {
		t.Error("未知性别应视为全部")
	}
}

func TestParseReservationSearch_FacilityOrCategory(t *testing.T) {
	f := ParseReservationSearch(url.Values{"facility": {testFacilityID}, "category": {testCategoryID}})
	if f.FacilityID != testFacilityID || f.CategoryID != "" {
		t.Errorf("默认按场地过滤: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByFacility": {"category"}, "facility": {testFacilityID}, "category": {testCategoryID}})
	if f.CategoryID != testCategoryID || f.FacilityID != "" {
		t.Errorf("按类别过滤时忽略场地: %+v", f)
	}
}

func TestParseReservationSearch_DayModes(t *testing.T) {
	day, _ := dateutil.ParseDate("2024-03-10")

	f := ParseReservationSearch(url.Values{"day": {"2024-03-10"}})
	if f.DayFrom == nil || f.DayTo == nil || !f.DayFrom.Equal(day) || !f.DayTo.Equal(day) {
		t.Errorf("exact 应同时限定起止: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByDay": {"before"}, "day": {"2024-03-10"}})
	if f.DayFrom != nil || f.DayTo == nil || !f.DayTo.Equal(day) {
		t.Errorf("before 只限定结束日: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByDay": {"after"}, "day": {"2024-03-10"}})
	if f.DayTo != nil || f.DayFrom == nil || !f.DayFrom.Equal(day) {
		t.Errorf("after 只限定开始日: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByDay": {"range"}, "dayFrom": {"2024-03-01"}})
	if f.DayFrom != nil || f.DayTo != nil {
		t.Error("range 缺少一端时不应过滤")
	}

	f = ParseReservationSearch(url.Values{"searchByDay": {"range"}, "dayFrom": {"2024-03-01"}, "dayTo": {"2024-03-10"}})
	if f.DayFrom == nil || f.DayTo == nil || !f.DayTo.Equal(day) {
		t.Errorf("range 两端有效时应过滤: %+v", f)
	}
}

func TestParseReservationSearch_PriceModes(t *testing.T) {
	f := ParseReservationSearch(url.Values{"price": {"150"}})
	if f.PriceFrom == nil || *f.PriceFrom != 150 || f.PriceTo == nil || *f.PriceTo != 150 {
		t.Errorf("exact 价格错误: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByPrice": {"less"}, "price": {"100"}})
	if f.PriceLt == nil || *f.PriceLt != 100 || f.PriceFrom != nil {
		t.Errorf("less 应为严格小于: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByPrice": {"greater"}, "price": {"100"}})
	if f.PriceGt == nil || *f.PriceGt != 100 {
		t.Errorf("greater 应为严格大于: %+v", f)
	}

	f = ParseReservationSearch(url.Values{"searchByPrice": {"range"}, "priceFrom": {"50"}, "priceTo": {"x"}})
	if f.PriceFrom != nil || f.PriceTo != nil {
		t.Error("range 一端无效时不应过滤")
	}
}

func TestParseReservationSearch_Gender(t *testing.T) {
	if f := ParseReservationSearch(url.Values{"gender": {"female"}}); f.Gender != model.GenderFemale {
		t.Errorf("期望 F，实际 %q", f.Gender)
	}
	if f := ParseReservationSearch(url.Values{"gender": {"all"}}); f.Gender != "" {
		t.Errorf("all 不应过滤，实际 %q", f.Gender)
	}
}
