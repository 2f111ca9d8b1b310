package service

import (
	"go.uber.org/zap"

	"club-manager/backend/config"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/otp"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Organization OrganizationService
	Facility     FacilityService
	Reservation  ReservationService
	Report       ReportService
	Division     DivisionService
	Subscription SubscriptionService
	Attendance   AttendanceService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	verifier otp.Verifier,
	logger *zap.Logger,
) *Service {
	biz := &cfg.Business
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, tokens, verifier, logger),
		User:         NewUserService(repo, logger),
		Organization: NewOrganizationService(repo, logger),
		Facility:     NewFacilityService(biz, repo, logger),
		Reservation:  NewReservationService(biz, repo, logger),
		Report:       NewReportService(repo, logger),
		Division:     NewDivisionService(biz, repo, logger),
		Subscription: NewSubscriptionService(biz, repo, logger),
		Attendance:   NewAttendanceService(biz, repo, logger),
	}
}
