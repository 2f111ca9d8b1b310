package policy

import (
	"testing"
)

func TestPolicy_Allows(t *testing.T) {
	clerk := New("u1", true, false, []string{string(AddReservation)})
	if !clerk.Allows(AddReservation) {
		t.Error("员工应拥有已分配的权限")
	}
	if clerk.Allows(ChangePrice) {
		t.Error("员工不应拥有未分配的权限")
	}

	// 非员工即使 Token 中带有权限也不生效
	customer := New("u2", false, false, []string{string(AddReservation)})
	if customer.Allows(AddReservation) {
		t.Error("非员工不应拥有任何权限")
	}

	root := New("u3", false, true, nil)
	if !root.IsStaff() || !root.Allows(ChangeSubscriptionPrice) {
		t.Error("超级管理员应视为员工并拥有全部权限")
	}
	if !clerk.AllowsAny(ChangePrice, AddReservation) || clerk.AllowsAny(ChangePrice, AddFacility) {
		t.Error("AllowsAny 结果不正确")
	}
}

func TestPolicy_LandingPage(t *testing.T) {
	tests := []struct {
		name  string
		pol   Policy
		want  string
	}{
		{"超级管理员", New("u", false, true, nil), "staff"},
		{"非员工", New("u", false, false, []string{string(AddReservation)}), ""},
		{"没有页面权限", New("u", true, false, []string{string(ChangePrice)}), ""},
		{"预约优先", New("u", true, false, []string{string(AddDivision), string(AddReservation)}), "reservations"},
		{"只有训练班", New("u", true, false, []string{string(AddDivision)}), "divisions"},
		{"考勤先于订阅", New("u", true, false, []string{string(AddSubscription), string(AddTrainingSessionRecord)}), "training-sessions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pol.LandingPage(); got != tt.want {
				t.Errorf("期望 %q，实际 %q", tt.want, got)
			}
		})
	}
}

func TestPolicy_Operations(t *testing.T) {
	pol := New("u", true, false, []string{string(ChangePrice), "unknown_perm"})
	ops := pol.Operations()

	want := map[string]bool{
		string(ChangePrice):            true,
		string(OpEditReservationPrice): true,
		string(OpReviewApplications):   true,
	}
	if len(ops) != len(want) {
		t.Fatalf("期望 %d 个操作，实际: %v", len(want), ops)
	}
	for i, op := range ops {
		if !want[op] {
			t.Errorf("不应包含操作 %s", op)
		}
		if i > 0 && ops[i-1] > op {
			t.Errorf("操作列表应有序: %v", ops)
		}
	}

	root := New("root", false, true, nil).Operations()
	if len(root) != len(All)+5 {
		t.Errorf("超级管理员应拥有全部操作，实际: %v", root)
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("add_reservation") || IsValid("delete_everything") {
		t.Error("IsValid 结果不正确")
	}
}
