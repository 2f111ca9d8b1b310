// Package dateutil 日期与时刻计算：按月加减、按周展开、HH:MM 解析
package dateutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// ParseDate 解析 YYYY-MM-DD，结果为 UTC 零点
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Truncate 取日期部分（保留原时区的年月日，返回 UTC 零点）
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today 业务时区下的今天
func Today(now time.Time, loc *time.Location) time.Time {
	return Truncate(now.In(loc))
}

// AddMonths 加 n 个自然月，日号超出目标月天数时取该月最后一天
// 例：1-31 + 1 月 → 2-28（闰年 2-29）
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	last := DaysIn(target.Year(), target.Month())
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// DaysIn 指定月份的天数
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WeeklyDates 从 start 开始每隔 7 天取一次，共 weeks 个日期
func WeeklyDates(start time.Time, weeks int) []time.Time {
	if weeks <= 0 {
		return []time.Time{}
	}
	dates := make([]time.Time, weeks)
	for i := 0; i < weeks; i++ {
		dates[i] = start.AddDate(0, 0, 7*i)
	}
	return dates
}

// MonthRange 某月的首日与末日
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// YearRange 某年的首日与末日
func YearRange(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Day 日期条目
type Day struct {
	Date    string       `json:"date"`
	Weekday time.Weekday `json:"weekday"`
}

// NextDays today 起连续 n+1 天
func NextDays(today time.Time, n int) []Day {
	days := make([]Day, 0, n+1)
	for i := 0; i <= n; i++ {
		d := today.AddDate(0, 0, i)
		days = append(days, Day{Date: FormatDate(d), Weekday: d.Weekday()})
	}
	return days
}

// ── 时刻 ──

// ParseClock 解析 HH:MM 或 HH:MM:SS 为当天分钟数
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("无效的时刻 %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("无效的小时 %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("无效的分钟 %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("无效的秒 %q", s)
		}
	}
	return h*60 + m, nil
}

// FormatClock 分钟数格式化为 HH:MM
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock 统一为 HH:MM，无法解析时原样返回
func NormalizeClock(s string) string {
	m, err := ParseClock(s)
	if err != nil {
		return s
	}
	return FormatClock(m)
}

// At 把日期与时刻组合成 loc 下的时间点
func At(day time.Time, minutes int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(minutes) * time.Minute)
}
