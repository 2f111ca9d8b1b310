package service

import (
	"fmt"
	"time"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/pkg/dateutil"
)

// ── 模型 → DTO 公共转换 ──

const timestampLayout = "2006-01-02T15:04:05Z07:00"

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := dateutil.FormatDate(*t)
	return &s
}

// formatNumber 发票与预约编号统一补零到 4 位
func formatNumber(n int64) string {
	return fmt.Sprintf("%04d", n)
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, FullName: u.FullName, Phone: u.Phone, Gender: u.Gender}
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:          u.UserID,
		Phone:       u.Phone,
		FullName:    u.FullName,
		Email:       u.Email,
		Gender:      u.Gender,
		BirthDate:   formatDatePtr(u.BirthDate),
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		Confirmed:   u.Confirmed,
		Permissions: []string(u.Permissions),
		Version:     u.Version,
		CreatedAt:   formatTimestamp(u.CreatedAt),
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if u.LastLogin != nil {
		s := formatTimestamp(*u.LastLogin)
		resp.LastLogin = &s
	}
	return resp
}

func toTimeSlotResponse(s *model.TimeSlot) dto.TimeSlotResponse {
	return dto.TimeSlotResponse{
		ID:        s.TimeSlotID,
		StartTime: dateutil.NormalizeClock(s.StartTime),
		EndTime:   dateutil.NormalizeClock(s.EndTime),
	}
}

func toTimeSlotResponses(slots []model.TimeSlot) []dto.TimeSlotResponse {
	out := make([]dto.TimeSlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toTimeSlotResponse(&slots[i]))
	}
	return out
}

func toOrganizationResponse(o *model.Organization) *dto.OrganizationResponse {
	if o == nil {
		return nil
	}
	return &dto.OrganizationResponse{
		Name:               o.Name,
		Phone:              o.Phone,
		Address:            o.Address,
		City:               o.City,
		TaxNumber:          o.TaxNumber,
		CommercialRegister: o.CommercialRegister,
		LogoURL:            o.LogoURL,
		BackgroundURL:      o.BackgroundURL,
		UpdatedAt:          formatTimestamp(o.UpdatedAt),
	}
}

func toDivisionBrief(d *model.Division) *dto.NamedBrief {
	if d == nil {
		return nil
	}
	return &dto.NamedBrief{ID: d.DivisionID, Name: d.DisplayName()}
}

func toTrainingDayResponse(d *model.TrainingWeekDay) dto.TrainingDayResponse {
	return dto.TrainingDayResponse{
		ID:        d.TrainingDayID,
		Weekday:   d.Weekday,
		StartTime: dateutil.NormalizeClock(d.StartTime),
		EndTime:   dateutil.NormalizeClock(d.EndTime),
	}
}
