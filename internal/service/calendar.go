package service

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"club-manager/backend/internal/model"
	"club-manager/backend/pkg/dateutil"
)

// ── iCalendar 导出 ──────────────────────────────────────────
//
// 每条预约生成一个 VEVENT：
//   - DTSTART/DTEND 由预约日期与时间段组合，跨午夜的时间段结束于次日
//   - UID 固定为 预约ID@club-manager，订阅方刷新时可去重
//   - 时间段已被删除的预约不导出
// ─────────────────────────────────────────────────────────────

const calendarProductID = "-//club-manager//reservations//EN"

func buildReservationCalendar(facility *model.Facility, reservations []model.Reservation, loc *time.Location, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(facility.Name)
	cal.SetXWRTimezone(loc.String())

	stamp := now.UTC()
	for i := range reservations {
		res := &reservations[i]
		if res.TimeSlot == nil {
			continue
		}
		start, end, ok := reservationWindow(res, loc)
		if !ok {
			continue
		}

		event := cal.AddEvent(res.ReservationID + "@club-manager")
		event.SetDtStampTime(stamp)
		event.SetCreatedTime(res.CreatedAt)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(reservationSummary(facility, res))
		event.SetLocation(facility.Name)
		event.SetDescription(fmt.Sprintf("#%s  %.2f", formatNumber(res.Number), res.Price))
	}

	return cal.Serialize()
}

// reservationWindow 预约的起止时刻
func reservationWindow(res *model.Reservation, loc *time.Location) (time.Time, time.Time, bool) {
	span, err := parseSpan(res.TimeSlot.StartTime, res.TimeSlot.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return dateutil.At(res.Day, span.start, loc), dateutil.At(res.Day, span.end, loc), true
}

func reservationSummary(facility *model.Facility, res *model.Reservation) string {
	if res.User != nil {
		return facility.Name + " - " + res.User.FullName
	}
	return facility.Name
}
