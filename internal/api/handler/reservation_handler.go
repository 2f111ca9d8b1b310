package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// ReservationHandler 预约与预约向导 HTTP 处理器
type ReservationHandler struct {
	reservationSvc service.ReservationService
}

// NewReservationHandler 创建 ReservationHandler
func NewReservationHandler(reservationSvc service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationSvc: reservationSvc}
}

// Upcoming 今天与次日凌晨的预约
// GET /api/v1/reservations/upcoming
func (h *ReservationHandler) Upcoming(c *gin.Context) {
	result, err := h.reservationSvc.Upcoming(c.Request.Context())
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, result)
}

// FreeSlots 指定日期的空闲时间段
// GET /api/v1/reservations/free-slots/:day
func (h *ReservationHandler) FreeSlots(c *gin.Context) {
	result, err := h.reservationSvc.FreeSlotsOn(c.Request.Context(), c.Param("day"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidDay) {
			response.NotFound(c, 15002, err.Error())
			return
		}
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, result)
}

// Search 预约搜索；无法解析的参数视为未提供
// GET /api/v1/reservations
func (h *ReservationHandler) Search(c *gin.Context) {
	page := bindPage(c)
	list, total, err := h.reservationSvc.Search(c.Request.Context(), c.Request.URL.Query(), page)
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// Get 预约详情
// GET /api/v1/reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	result, err := h.reservationSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 取消预约
// DELETE /api/v1/reservations/:id
func (h *ReservationHandler) Delete(c *gin.Context) {
	if err := h.reservationSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, nil)
}

// Invoice 预约发票数据
// GET /api/v1/reservations/:id/invoice
func (h *ReservationHandler) Invoice(c *gin.Context) {
	result, err := h.reservationSvc.Invoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, result)
}

// ────────────────────── 预约向导 ──────────────────────

// StartWizard 开始预约向导
// POST /api/v1/reservations/wizards
func (h *ReservationHandler) StartWizard(c *gin.Context) {
	var req dto.StartWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.reservationSvc.StartWizard(c.Request.Context(), pol, &req)
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.Created(c, result)
}

// WizardStep 提交第一步（场地与日期），返回可选时间段
// POST /api/v1/reservations/wizards/:token/step
func (h *ReservationHandler) WizardStep(c *gin.Context) {
	var req dto.WizardStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.reservationSvc.WizardStep(c.Request.Context(), pol, c.Param("token"), &req)
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, result)
}

// CompleteWizard 提交第二步并创建（或移动）预约
// POST /api/v1/reservations/wizards/:token/complete
func (h *ReservationHandler) CompleteWizard(c *gin.Context) {
	var req dto.CompleteWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.reservationSvc.CompleteWizard(c.Request.Context(), pol, c.Param("token"), &req)
	if err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.Created(c, gin.H{"list": result})
}

// CancelWizard 放弃预约向导
// DELETE /api/v1/reservations/wizards/:token
func (h *ReservationHandler) CancelWizard(c *gin.Context) {
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}
	if err := h.reservationSvc.CancelWizard(c.Request.Context(), pol, c.Param("token")); err != nil {
		h.handleReservationError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleReservationError 预约模块错误码 15xxx
func (h *ReservationHandler) handleReservationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReservationNotFound):
		response.NotFound(c, 15001, err.Error())
	case errors.Is(err, service.ErrInvalidDay):
		response.BadRequest(c, 15002, err.Error())
	case errors.Is(err, service.ErrSlotTaken):
		response.Conflict(c, 15003, err.Error())
	case errors.Is(err, service.ErrWizardNotFound):
		response.Gone(c, 15004, err.Error())
	case errors.Is(err, service.ErrWizardForbidden):
		response.Forbidden(c, 15005, err.Error())
	case errors.Is(err, service.ErrWizardStep):
		response.UnprocessableEntity(c, 15006, err.Error())
	case errors.Is(err, service.ErrWizardReservationRequired),
		errors.Is(err, service.ErrWizardFacilityRequired),
		errors.Is(err, service.ErrWizardUserRequired),
		errors.Is(err, service.ErrInvalidWeeks):
		response.BadRequest(c, 15007, err.Error())
	case errors.Is(err, service.ErrFacilityNotFound),
		errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrFacilitySuspended):
		response.UnprocessableEntity(c, 14009, err.Error())
	case errors.Is(err, service.ErrSlotNotInFacility):
		response.BadRequest(c, 14007, err.Error())
	case errors.Is(err, service.ErrCustomerNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrOrganizationNotConfigured):
		response.UnprocessableEntity(c, 13001, err.Error())
	default:
		respondCommonError(c, err)
	}
}
