package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"club-manager/backend/internal/dto"
	pkgerrors "club-manager/backend/pkg/errors"
)

func setupTestFacilityService() (*facilityService, *testRepos) {
	repos, repo := newTestRepos()
	svc := NewFacilityService(testBusinessConfig(), repo, zap.NewNop()).(*facilityService)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return svc, repos
}

func TestFacilityService_Create(t *testing.T) {
	svc, _ := setupTestFacilityService()
	ctx := context.Background()

	missing := "missing"
	if _, err := svc.Create(ctx, &dto.CreateFacilityRequest{Name: "Court", CategoryID: &missing}); !errors.Is(err, ErrFacilityCategoryNotFound) {
		t.Errorf("期望 ErrFacilityCategoryNotFound，实际: %v", err)
	}

	resp, err := svc.Create(ctx, &dto.CreateFacilityRequest{Name: "Court", DefaultPrice: 120})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Color != "#000000" {
		t.Errorf("未指定颜色时应使用默认颜色，实际: %s", resp.Color)
	}
}

func TestFacilityService_Update(t *testing.T) {
	svc, repos := setupTestFacilityService()
	court := seedFacility(repos, "Court", 100)
	price := 150.0

	if _, err := svc.Update(context.Background(), court.FacilityID, &dto.UpdateFacilityRequest{DefaultPrice: &price, Version: 3}); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}

	resp, err := svc.Update(context.Background(), court.FacilityID, &dto.UpdateFacilityRequest{DefaultPrice: &price, Version: 1})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.DefaultPrice != 150 || resp.Version != 2 {
		t.Errorf("更新结果不正确: %+v", resp)
	}
}

// ── 时间段 ──

func TestFacilityService_ReplaceSlots_KeepsExistingIDs(t *testing.T) {
	svc, repos := setupTestFacilityService()
	court := seedFacility(repos, "Court", 100, [2]string{"08:00", "09:00"}, [2]string{"09:00", "10:00"})
	keep := slotID(court, "08:00")

	slots, err := svc.ReplaceSlots(context.Background(), court.FacilityID, &dto.ReplaceTimeSlotsRequest{
		Slots: []dto.TimeSlotInput{
			{ID: keep, StartTime: "08:00", EndTime: "09:30"},
			{StartTime: "23:00", EndTime: "01:00"},
		},
	})
	if err != nil {
		t.Fatalf("ReplaceSlots 应成功: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("未列出的时间段应被删除，实际: %d", len(slots))
	}
	if slots[0].ID != keep || slots[0].EndTime != "09:30" {
		t.Errorf("已有时间段应保留 ID 并更新时刻: %+v", slots[0])
	}
	if slots[1].StartTime != "23:00" || slots[1].EndTime != "01:00" {
		t.Errorf("跨午夜时间段应被接受: %+v", slots[1])
	}
}

func TestFacilityService_ReplaceSlots_Invalid(t *testing.T) {
	svc, repos := setupTestFacilityService()
	court := seedFacility(repos, "Court", 100, [2]string{"08:00", "09:00"})
	pool := seedFacility(repos, "Pool", 60, [2]string{"08:00", "09:00"})
	ctx := context.Background()

	tests := []struct {
		name    string
		slots   []dto.TimeSlotInput
		wantErr error
	}{
		{"时间段重叠", []dto.TimeSlotInput{{StartTime: "08:00", EndTime: "09:00"}, {StartTime: "08:30", EndTime: "09:30"}}, ErrSlotConflict},
		{"开始晚于结束", []dto.TimeSlotInput{{StartTime: "10:00", EndTime: "09:00"}}, ErrSlotInvalidRange},
		{"其他场地的时间段", []dto.TimeSlotInput{{ID: slotID(pool, "08:00"), StartTime: "08:00", EndTime: "09:00"}}, ErrSlotNotInFacility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReplaceSlots(ctx, court.FacilityID, &dto.ReplaceTimeSlotsRequest{Slots: tt.slots})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}

	tooMany := make([]dto.TimeSlotInput, 25)
	if _, err := svc.ReplaceSlots(ctx, court.FacilityID, &dto.ReplaceTimeSlotsRequest{Slots: tooMany}); !errors.Is(err, ErrTooManySlots) {
		t.Errorf("期望 ErrTooManySlots，实际: %v", err)
	}
}

// ── 日历导出 ──

func TestFacilityService_Calendar(t *testing.T) {
	svc, repos := setupTestFacilityService()
	court := seedFacility(repos, "Court", 100, [2]string{"08:00", "09:00"})
	customer := seedCustomer(repos, "0511111111", "顾客甲")
	seedReservation(t, repos, court, customer, "2026-03-05", "08:00", "09:00")

	file, err := svc.Calendar(context.Background(), court.FacilityID, &dto.CalendarRequest{})
	if err != nil {
		t.Fatalf("Calendar 应成功: %v", err)
	}
	if !strings.HasPrefix(file.ContentType, "text/calendar") {
		t.Errorf("ContentType 不正确: %s", file.ContentType)
	}
	if strings.Count(string(file.Data), "BEGIN:VEVENT") != 1 {
		t.Errorf("期望 1 个日历事件，实际内容:\n%s", file.Data)
	}

	_, err = svc.Calendar(context.Background(), court.FacilityID, &dto.CalendarRequest{From: "2026-03-10", To: "2026-03-01"})
	if !errors.Is(err, ErrInvalidCalendarRange) {
		t.Errorf("期望 ErrInvalidCalendarRange，实际: %v", err)
	}
	if _, err := svc.Calendar(context.Background(), "missing", &dto.CalendarRequest{}); !errors.Is(err, ErrFacilityNotFound) {
		t.Errorf("期望 ErrFacilityNotFound，实际: %v", err)
	}
}

// ── 俱乐部资料 ──

func TestOrganizationService_SaveAndGet(t *testing.T) {
	_, repo := newTestRepos()
	svc := NewOrganizationService(repo, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Get(ctx); !errors.Is(err, ErrOrganizationNotConfigured) {
		t.Errorf("期望 ErrOrganizationNotConfigured，实际: %v", err)
	}

	req := &dto.OrganizationRequest{
		Name: "海滨体育俱乐部", Phone: "0112345678", Address: "滨海路 1 号", City: "Jeddah",
		TaxNumber: "123456789012345", CommercialRegister: "12345678901234",
	}
	bad := *req
	bad.TaxNumber = "12345"
	if _, err := svc.Save(ctx, &bad); !errors.Is(err, ErrInvalidTaxNumber) {
		t.Errorf("期望 ErrInvalidTaxNumber，实际: %v", err)
	}
	bad = *req
	bad.CommercialRegister = "abc"
	if _, err := svc.Save(ctx, &bad); !errors.Is(err, ErrInvalidCommercialRegister) {
		t.Errorf("期望 ErrInvalidCommercialRegister，实际: %v", err)
	}

	if _, err := svc.Save(ctx, req); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}
	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if got.Name != req.Name || got.TaxNumber != req.TaxNumber {
		t.Errorf("俱乐部资料不正确: %+v", got)
	}
}
