package service

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"club-manager/backend/internal/model"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
)

// ── 预约搜索参数 ──────────────────────────────────────────
//
// 查询参数无法解析时视为未提供，不报错：
//   - searchByFacility: facility | category，默认 facility
//   - searchByDay: exact | range | before | after，默认 exact
//   - searchByPrice: exact | range | less | greater，默认 exact
//   - gender: male | female | all，默认 all
//   - range 模式需要两端都有效才生效
// ─────────────────────────────────────────────────────────────

func oneOf(v string, allowed ...string) (string, bool) {
	for _, a := range allowed {
		if v == a {
			return v, true
		}
	}
	return "", false
}

func enumParam(params url.Values, key, fallback string, allowed ...string) string {
	if v, ok := oneOf(params.Get(key), allowed...); ok {
		return v
	}
	return fallback
}

// parsedUUID 无法解析的 ID 视为未提供
func parsedUUID(s string) string {
	id, err := uuid.Parse(s)
	if err != nil {
		return ""
	}
	return id.String()
}

func uuidParam(params url.Values, key string) string {
	return parsedUUID(params.Get(key))
}

func floatParam(params url.Values, key string) *float64 {
	v, err := strconv.ParseFloat(params.Get(key), 64)
	if err != nil {
		return nil
	}
	return &v
}

func dateParam(params url.Values, key string) *time.Time {
	d, err := dateutil.ParseDate(params.Get(key))
	if err != nil {
		return nil
	}
	return &d
}

// ParseReservationSearch 把查询参数转换为过滤条件
func ParseReservationSearch(params url.Values) repository.ReservationFilter {
	var f repository.ReservationFilter

	switch enumParam(params, "searchByFacility", "facility", "facility", "category") {
	case "facility":
		f.FacilityID = uuidParam(params, "facility")
	case "category":
		f.CategoryID = uuidParam(params, "category")
	}

	f.UserID = uuidParam(params, "user")

	switch enumParam(params, "gender", "all", "male", "female", "all") {
	case "male":
		f.Gender = model.GenderMale
	case "female":
		f.Gender = model.GenderFemale
	}

	switch enumParam(params, "searchByDay", "exact", "exact", "range", "before", "after") {
	case "exact":
		if d := dateParam(params, "day"); d != nil {
			f.DayFrom, f.DayTo = d, d
		}
	case "range":
		from, to := dateParam(params, "dayFrom"), dateParam(params, "dayTo")
		if from != nil && to != nil {
			f.DayFrom, f.DayTo = from, to
		}
	case "before":
		f.DayTo = dateParam(params, "day")
	case "after":
		f.DayFrom = dateParam(params, "day")
	}

	switch enumParam(params, "searchByPrice", "exact", "exact", "range", "less", "greater") {
	case "exact":
		if p := floatParam(params, "price"); p != nil {
			f.PriceFrom, f.PriceTo = p, p
		}
	case "range":
		from, to := floatParam(params, "priceFrom"), floatParam(params, "priceTo")
		if from != nil && to != nil {
			f.PriceFrom, f.PriceTo = from, to
		}
	case "less":
		f.PriceLt = floatParam(params, "price")
	case "greater":
		f.PriceGt = floatParam(params, "price")
	}

	return f
}
