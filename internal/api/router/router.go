package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club-manager/backend/config"
	"club-manager/backend/internal/api/handler"
	"club-manager/backend/internal/api/middleware"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/metrics"
	"club-manager/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎；rdb 可为 nil（降级运行）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	repo *repository.Repository,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	if cfg.Server.EnableMetrics {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		code := http.StatusOK
		if err := repo.Ping(ctx); err != nil {
			status["status"], status["database"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				status["status"], status["redis"] = "degraded", err.Error()
			}
		}
		c.JSON(code, status)
	})

	staff := middleware.RequireStaff()
	superuser := middleware.RequireSuperuser()
	can := middleware.RequirePermission

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login",
				middleware.RateLimit(rdb, "login", cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateLimitWindow, logger),
				h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)

			reset := auth.Group("/password-reset")
			reset.Use(middleware.RateLimit(rdb, "password_reset", cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateLimitWindow, logger))
			{
				reset.POST("", h.Auth.RequestPasswordReset)
				reset.POST("/verify", h.Auth.VerifyPasswordReset)
				reset.POST("/confirm", h.Auth.ConfirmPasswordReset)
			}
		}

		// 顾客自助注册
		v1.POST("/signup",
			middleware.RateLimit(rdb, "signup", cfg.Auth.PublicSignupRateLimit, cfg.Auth.PublicSignupRateWindow, logger),
			h.User.Signup)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 俱乐部资料
			authorized.GET("/organization", staff, h.Organization.Get)
			authorized.PUT("/organization", superuser, h.Organization.Save)

			// 员工（超级管理员）
			staffUsers := authorized.Group("/staff", superuser)
			{
				staffUsers.GET("", h.User.ListStaff)
				staffUsers.POST("", h.User.CreateStaff)
				staffUsers.GET("/:id", h.User.GetStaff)
				staffUsers.PUT("/:id", h.User.UpdateStaff)
				staffUsers.DELETE("/:id", h.User.DeleteStaff)
				staffUsers.PUT("/:id/permissions", h.User.UpdatePermissions)
				staffUsers.POST("/:id/reset-password", h.User.ResetStaffPassword)
			}

			// 顾客
			customers := authorized.Group("/customers", staff)
			{
				customers.GET("", h.User.ListCustomers)
				customers.POST("", h.User.CreateCustomer)
				customers.POST("/import", h.User.ImportCustomers)
				customers.GET("/applications", h.User.ListApplications)
				customers.POST("/applications/:id/confirm", h.User.ConfirmApplication)
				customers.DELETE("/applications/:id", h.User.DismissApplication)
			}

			// 场地与时间段
			authorized.GET("/facility-categories", can(policy.AddFacility, policy.AddTimeSlot, policy.AddReservation), h.Facility.ListCategories)
			authorized.POST("/facility-categories", can(policy.AddFacility), h.Facility.CreateCategory)
			facilities := authorized.Group("/facilities")
			{
				facilities.GET("", can(policy.AddFacility, policy.AddTimeSlot, policy.AddReservation), h.Facility.List)
				facilities.GET("/:id", can(policy.AddFacility, policy.AddTimeSlot, policy.AddReservation), h.Facility.Get)
				facilities.POST("", can(policy.AddFacility), h.Facility.Create)
				facilities.PUT("/:id", can(policy.AddFacility), h.Facility.Update)
				facilities.PUT("/:id/time-slots", can(policy.AddTimeSlot), h.Facility.ReplaceSlots)
				facilities.GET("/:id/calendar.ics", can(policy.AddReservation), h.Facility.Calendar)
			}

			// 预约
			reservations := authorized.Group("/reservations")
			{
				reports := reservations.Group("/reports", can(policy.CreateReport))
				{
					reports.GET("/period", h.Report.ResolvePeriod)
					reports.GET("/summary", h.Report.ReservationSummary)
					reports.GET("/records", h.Report.ReservationRecords)
				}

				booking := reservations.Group("", can(policy.AddReservation))
				{
					booking.GET("", h.Reservation.Search)
					booking.GET("/upcoming", h.Reservation.Upcoming)
					booking.GET("/free-slots/:day", h.Reservation.FreeSlots)
					booking.GET("/:id", h.Reservation.Get)
					booking.DELETE("/:id", h.Reservation.Delete)
					booking.GET("/:id/invoice", h.Reservation.Invoice)

					booking.POST("/wizards", h.Reservation.StartWizard)
					booking.POST("/wizards/:token/step", h.Reservation.WizardStep)
					booking.POST("/wizards/:token/complete", h.Reservation.CompleteWizard)
					booking.DELETE("/wizards/:token", h.Reservation.CancelWizard)
				}
			}

			// 运动类别与训练班
			viewDivisions := can(policy.AddDivision, policy.AddSubscription, policy.ViewSubscription, policy.AddTrainingWeekDay)
			authorized.GET("/sport-categories", viewDivisions, h.Division.ListCategories)
			authorized.POST("/sport-categories", can(policy.AddDivision), h.Division.CreateCategory)
			divisions := authorized.Group("/divisions")
			{
				divisions.GET("", viewDivisions, h.Division.List)
				divisions.GET("/:id", viewDivisions, h.Division.Get)
				divisions.GET("/:id/price", viewDivisions, h.Division.Price)
				divisions.POST("", can(policy.AddDivision), h.Division.Create)
				divisions.PUT("/:id", can(policy.AddDivision), h.Division.Update)
				divisions.PUT("/:id/training-days", can(policy.AddTrainingWeekDay), h.Division.ReplaceTrainingDays)
			}

			// 订阅
			viewSubs := can(policy.AddSubscription, policy.ViewSubscription)
			subscriptions := authorized.Group("/subscriptions")
			{
				subscriptions.GET("/reports/summary", can(policy.CreateReport), h.Report.SubscriptionSummary)
				subscriptions.GET("/reports/summary.xlsx", can(policy.CreateReport), h.Report.SubscriptionSummaryExport)

				subscriptions.GET("", viewSubs, h.Subscription.Search)
				subscriptions.GET("/expiring", viewSubs, h.Subscription.ExpiringSoon)
				subscriptions.GET("/:id", viewSubs, h.Subscription.Get)
				subscriptions.GET("/:id/invoices", viewSubs, h.Subscription.ListInvoices)
				subscriptions.GET("/:id/attendance", viewSubs, h.Subscription.AttendanceHistory)
				subscriptions.POST("", can(policy.AddSubscription), h.Subscription.Create)
				subscriptions.POST("/:id/extend", can(policy.AddSubscription), h.Subscription.Extend)
				subscriptions.POST("/:id/payments", can(policy.AddSubscription), h.Subscription.Pay)
				subscriptions.DELETE("/:id", can(policy.AddSubscription), h.Subscription.Delete)
			}
			authorized.GET("/invoices/:id", viewSubs, h.Subscription.InvoiceDocument)

			// 训练考勤
			record := can(policy.AddTrainingSessionRecord)
			authorized.GET("/training-sessions/today", record, h.Division.TodaySessions)
			authorized.GET("/training-days/:id/enrollment", record, h.Attendance.Enrollment)
			authorized.POST("/training-days/:id/records", record, h.Attendance.Create)
			records := authorized.Group("/attendance-records", record)
			{
				records.GET("", h.Attendance.List)
				records.GET("/:id", h.Attendance.Get)
				records.PUT("/:id", h.Attendance.Update)
				records.GET("/:id/export", h.Attendance.Export)
			}
		}
	}

	return r
}
