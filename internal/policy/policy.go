// Package policy 权限常量与授权策略
//
// 每个请求由 Token 中的身份快照构造一个 Policy，处理器与业务层都通过它判断
// 可执行的操作；Operations 返回的集合同时下发给前端，用于控制字段可编辑性。
package policy

import "sort"

// Permission 细粒度权限
type Permission string

// 预约模块权限
const (
	AddReservation Permission = "add_reservation"
	AddFacility    Permission = "add_facility"
	AddTimeSlot    Permission = "add_timeslot"
	CreateReport   Permission = "create_report"
	ChangePrice    Permission = "change_price"
)

// 订阅模块权限
const (
	AddDivision              Permission = "add_division"
	AddSubscription          Permission = "add_subscription"
	ViewSubscription         Permission = "view_subscription"
	AddTrainingSessionRecord Permission = "add_trainingsessionrecord"
	ChangeSubscriptionPrice  Permission = "change_subs_price"
	AddTrainingWeekDay       Permission = "add_trainingweekday"
)

// All 全部可分配权限（顺序即前端展示顺序）
var All = []Permission{
	AddReservation, AddFacility, AddTimeSlot, CreateReport, ChangePrice,
	AddDivision, AddSubscription, ViewSubscription, AddTrainingSessionRecord,
	ChangeSubscriptionPrice, AddTrainingWeekDay,
}

// IsValid 是否为已知权限
func IsValid(p string) bool {
	for _, known := range All {
		if string(known) == p {
			return true
		}
	}
	return false
}

// Policy 单个用户的授权策略
type Policy struct {
	userID      string
	staff       bool
	superuser   bool
	permissions map[Permission]struct{}
}

// New 由身份快照构造 Policy
func New(userID string, staff, superuser bool, permissions []string) Policy {
	set := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		set[Permission(p)] = struct{}{}
	}
	return Policy{
		userID:      userID,
		staff:       staff || superuser,
		superuser:   superuser,
		permissions: set,
	}
}

// UserID 当前用户
func (p Policy) UserID() string { return p.userID }

// IsStaff 员工（含超级管理员）
func (p Policy) IsStaff() bool { return p.staff }

// IsSuperuser 超级管理员
func (p Policy) IsSuperuser() bool { return p.superuser }

// Allows 是否拥有指定权限；超级管理员拥有全部权限
func (p Policy) Allows(perm Permission) bool {
	if p.superuser {
		return true
	}
	if !p.staff {
		return false
	}
	_, ok := p.permissions[perm]
	return ok
}

// AllowsAny 拥有任一权限即可
func (p Policy) AllowsAny(perms ...Permission) bool {
	for _, perm := range perms {
		if p.Allows(perm) {
			return true
		}
	}
	return false
}

// Operation 前端可见的操作名
type Operation string

// 派生操作
const (
	OpEditReservationPrice  Operation = "reservation.edit_price"
	OpEditSubscriptionPrice Operation = "subscription.edit_price"
	OpManageStaff           Operation = "staff.manage"
	OpEditOrganization      Operation = "organization.edit"
	OpReviewApplications    Operation = "customers.review_applications"
)

// Operations 允许的操作集合（权限名 + 派生操作），有序
func (p Policy) Operations() []string {
	ops := make([]string, 0, len(All)+5)
	for _, perm := range All {
		if p.Allows(perm) {
			ops = append(ops, string(perm))
		}
	}
	if p.Allows(ChangePrice) {
		ops = append(ops, string(OpEditReservationPrice))
	}
	if p.Allows(ChangeSubscriptionPrice) {
		ops = append(ops, string(OpEditSubscriptionPrice))
	}
	if p.superuser {
		ops = append(ops, string(OpManageStaff), string(OpEditOrganization))
	}
	if p.staff {
		ops = append(ops, string(OpReviewApplications))
	}
	sort.Strings(ops)
	return ops
}

// LandingPage 登录后的默认页面；空字符串表示没有可访问的页面
func (p Policy) LandingPage() string {
	if p.superuser {
		return "staff"
	}
	if !p.staff {
		return ""
	}
	order := []struct {
		perm Permission
		page string
	}{
		{AddReservation, "reservations"},
		{AddFacility, "facilities"},
		{CreateReport, "reservation-reports"},
		{AddTrainingSessionRecord, "training-sessions"},
		{AddSubscription, "subscriptions"},
		{AddDivision, "divisions"},
	}
	for _, o := range order {
		if p.Allows(o.perm) {
			return o.page
		}
	}
	return ""
}
