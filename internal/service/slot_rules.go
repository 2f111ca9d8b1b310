package service

import (
	"errors"
	"fmt"

	"club-manager/backend/internal/model"
	"club-manager/backend/pkg/dateutil"
)

// ── 时间段规则 ──

var (
	ErrSlotInvalidTime  = errors.New("时间格式应为 HH:MM")
	ErrSlotInvalidRange = errors.New("开始时间必须早于结束时间")
	ErrSlotConflict     = errors.New("时间段之间存在冲突")
)

// clockSpan 以分钟表示的区间；跨午夜时 end 加一天
type clockSpan struct {
	start, end int
}

func (a clockSpan) overlaps(b clockSpan) bool {
	if a == b {
		return true
	}
	return a.start < b.end && b.start < a.end
}

func (a clockSpan) wraps() bool {
	return a.end > dateutil.MinutesPerDay
}

// isMidnightWrap 22:00 之后开始、02:59 之前结束的跨午夜时间段
func isMidnightWrap(start, end int) bool {
	return start/60 >= 22 && end/60 <= 2
}

func parseSpan(start, end string) (clockSpan, error) {
	s, err := dateutil.ParseClock(start)
	if err != nil {
		return clockSpan{}, ErrSlotInvalidTime
	}
	e, err := dateutil.ParseClock(end)
	if err != nil {
		return clockSpan{}, ErrSlotInvalidTime
	}
	if s < e {
		return clockSpan{start: s, end: e}, nil
	}
	if isMidnightWrap(s, e) {
		return clockSpan{start: s, end: e + dateutil.MinutesPerDay}, nil
	}
	return clockSpan{}, ErrSlotInvalidRange
}

// ValidateSlotRange 开始须早于结束，跨午夜例外
func ValidateSlotRange(start, end string) error {
	_, err := parseSpan(start, end)
	return err
}

// SlotsConflict 两个时间段按开区间判断是否重叠，完全相同也视为冲突。
// 时间段每天重复，跨午夜的时间段会与次日凌晨的时间段比较。
func SlotsConflict(a, b model.TimeSlot) bool {
	sa, errA := parseSpan(a.StartTime, a.EndTime)
	sb, errB := parseSpan(b.StartTime, b.EndTime)
	if errA != nil || errB != nil {
		return false
	}
	if sa.overlaps(sb) {
		return true
	}
	shift := func(s clockSpan) clockSpan {
		return clockSpan{start: s.start + dateutil.MinutesPerDay, end: s.end + dateutil.MinutesPerDay}
	}
	if sa.wraps() && sb.end <= dateutil.MinutesPerDay && sa.overlaps(shift(sb)) {
		return true
	}
	if sb.wraps() && sa.end <= dateutil.MinutesPerDay && sb.overlaps(shift(sa)) {
		return true
	}
	return false
}

// ValidateSlotSet 逐一校验时间段并两两检查冲突，遇到第一个问题即返回
func ValidateSlotSet(slots []model.TimeSlot) error {
	for i := range slots {
		if err := ValidateSlotRange(slots[i].StartTime, slots[i].EndTime); err != nil {
			return fmt.Errorf("%w: %s-%s", err, slots[i].StartTime, slots[i].EndTime)
		}
	}
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if SlotsConflict(slots[i], slots[j]) {
				return fmt.Errorf("%w: %s-%s 与 %s-%s", ErrSlotConflict,
					slots[i].StartTime, slots[i].EndTime, slots[j].StartTime, slots[j].EndTime)
			}
		}
	}
	return nil
}

// FreeSlots 去掉已被占用的时间段，保持原顺序
func FreeSlots(all []model.TimeSlot, reservedIDs []string) []model.TimeSlot {
	reserved := make(map[string]struct{}, len(reservedIDs))
	for _, id := range reservedIDs {
		reserved[id] = struct{}{}
	}
	free := make([]model.TimeSlot, 0, len(all))
	for _, s := range all {
		if _, taken := reserved[s.TimeSlotID]; !taken {
			free = append(free, s)
		}
	}
	return free
}
