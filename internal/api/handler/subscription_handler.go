package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// SubscriptionHandler 订阅、付款与发票 HTTP 处理器
type SubscriptionHandler struct {
	subscriptionSvc service.SubscriptionService
}

// NewSubscriptionHandler 创建 SubscriptionHandler
func NewSubscriptionHandler(subscriptionSvc service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionSvc: subscriptionSvc}
}

// Search 订阅搜索
// GET /api/v1/subscriptions
func (h *SubscriptionHandler) Search(c *gin.Context) {
	var req dto.SubscriptionSearchRequest
	// 过滤参数无法解析时视为未提供，只有分页参数会导致绑定失败
	if err := c.ShouldBindQuery(&req); err != nil {
		req.PaginationRequest = *bindPage(c)
	}

	list, total, err := h.subscriptionSvc.Search(c.Request.Context(), &req)
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	result, err := h.subscriptionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OK(c, result)
}

// Create 新订阅
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.subscriptionSvc.Create(c.Request.Context(), pol, &req)
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.Created(c, result)
}

// Extend 续订
// POST /api/v1/subscriptions/:id/extend
func (h *SubscriptionHandler) Extend(c *gin.Context) {
	var req dto.ExtendSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.subscriptionSvc.Extend(c.Request.Context(), pol, c.Param("id"), &req)
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.Created(c, result)
}

// Pay 付款
// POST /api/v1/subscriptions/:id/payments
func (h *SubscriptionHandler) Pay(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.subscriptionSvc.Pay(c.Request.Context(), pol, c.Param("id"), &req)
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.Created(c, result)
}

// Delete DELETE /api/v1/subscriptions/:id
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	if err := h.subscriptionSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListInvoices 订阅的发票（新的在前）
// GET /api/v1/subscriptions/:id/invoices
func (h *SubscriptionHandler) ListInvoices(c *gin.Context) {
	invoices, err := h.subscriptionSvc.ListInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": invoices})
}

// InvoiceDocument 发票打印数据
// GET /api/v1/invoices/:id
func (h *SubscriptionHandler) InvoiceDocument(c *gin.Context) {
	result, err := h.subscriptionSvc.InvoiceDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OK(c, result)
}

// AttendanceHistory 订阅学员最近的出勤记录
// GET /api/v1/subscriptions/:id/attendance
func (h *SubscriptionHandler) AttendanceHistory(c *gin.Context) {
	result, err := h.subscriptionSvc.AttendanceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OK(c, result)
}

// ExpiringSoon 即将到期的订阅
// GET /api/v1/subscriptions/expiring
func (h *SubscriptionHandler) ExpiringSoon(c *gin.Context) {
	list, err := h.subscriptionSvc.ExpiringSoon(c.Request.Context())
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// handleSubscriptionError 订阅模块错误码 18xxx
func (h *SubscriptionHandler) handleSubscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFound(c, 18001, err.Error())
	case errors.Is(err, service.ErrInvoiceNotFound):
		response.NotFound(c, 18002, err.Error())
	case errors.Is(err, service.ErrSubscriptionExists):
		response.Conflict(c, 18003, err.Error())
	case errors.Is(err, service.ErrInitialPaidExceedsPrice),
		errors.Is(err, service.ErrPaymentExceedsDue),
		errors.Is(err, service.ErrNothingDue):
		response.UnprocessableEntity(c, 18004, err.Error())
	case errors.Is(err, service.ErrExtendStartTooEarly):
		response.UnprocessableEntity(c, 18005, err.Error())
	case errors.Is(err, service.ErrInvalidDay):
		response.BadRequest(c, 18006, err.Error())
	case errors.Is(err, service.ErrCustomerNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrDivisionNotFound):
		response.NotFound(c, 17001, err.Error())
	case errors.Is(err, service.ErrDivisionSuspended):
		response.UnprocessableEntity(c, 17005, err.Error())
	case errors.Is(err, service.ErrOrganizationNotConfigured):
		response.UnprocessableEntity(c, 13001, err.Error())
	default:
		respondCommonError(c, err)
	}
}
