package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"club-manager/backend/internal/model"
)

func TestMemoryWizardStore_SaveGetDelete(t *testing.T) {
	store := NewMemoryWizardStore()
	ctx := context.Background()

	w := &model.ReservationWizard{Token: "t1", Kind: model.WizardSingle, ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Save(ctx, w); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if got.Kind != model.WizardSingle {
		t.Errorf("期望 kind=single，实际: %s", got.Kind)
	}

	// 返回副本，修改不影响存储
	got.Step = model.WizardStepSelectSlot
	again, _ := store.Get(ctx, "t1")
	if again.Step != model.WizardStepSelectDay {
		t.Error("Get 应返回副本")
	}

	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := store.Get(ctx, "t1"); !errors.Is(err, ErrWizardNotFound) {
		t.Errorf("期望 ErrWizardNotFound，实际: %v", err)
	}
}

func TestMemoryWizardStore_Expiry(t *testing.T) {
	store := NewMemoryWizardStore().(*memoryWizardStore)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, &model.ReservationWizard{Token: "old", ExpiresAt: now.Add(-time.Second)}); !errors.Is(err, ErrWizardNotFound) {
		t.Errorf("已过期的向导不应保存，实际: %v", err)
	}

	if err := store.Save(ctx, &model.ReservationWizard{Token: "t", ExpiresAt: now.Add(30 * time.Minute)}); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}
	now = now.Add(31 * time.Minute)
	if _, err := store.Get(ctx, "t"); !errors.Is(err, ErrWizardNotFound) {
		t.Errorf("过期后期望 ErrWizardNotFound，实际: %v", err)
	}
	if len(store.wizards) != 0 {
		t.Errorf("过期项应被清理，剩余 %d", len(store.wizards))
	}
}
