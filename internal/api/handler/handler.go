package handler

import "club-manager/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Organization *OrganizationHandler
	Facility     *FacilityHandler
	Reservation  *ReservationHandler
	Report       *ReportHandler
	Division     *DivisionHandler
	Subscription *SubscriptionHandler
	Attendance   *AttendanceHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Organization: NewOrganizationHandler(svc.Organization),
		Facility:     NewFacilityHandler(svc.Facility),
		Reservation:  NewReservationHandler(svc.Reservation),
		Report:       NewReportHandler(svc.Report),
		Division:     NewDivisionHandler(svc.Division),
		Subscription: NewSubscriptionHandler(svc.Subscription),
		Attendance:   NewAttendanceHandler(svc.Attendance),
	}
}
