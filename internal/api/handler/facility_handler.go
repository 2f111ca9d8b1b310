package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// FacilityHandler 场地与时间段 HTTP 处理器
type FacilityHandler struct {
	facilitySvc service.FacilityService
}

// NewFacilityHandler 创建 FacilityHandler
func NewFacilityHandler(facilitySvc service.FacilityService) *FacilityHandler {
	return &FacilityHandler{facilitySvc: facilitySvc}
}

// ListCategories 场地类别
// GET /api/v1/facility-categories
func (h *FacilityHandler) ListCategories(c *gin.Context) {
	categories, err := h.facilitySvc.ListCategories(c.Request.Context())
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.OK(c, gin.H{"list": categories})
}

// CreateCategory 新建场地类别
// POST /api/v1/facility-categories
func (h *FacilityHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	category, err := h.facilitySvc.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.Created(c, category)
}

// List 场地列表
// GET /api/v1/facilities
func (h *FacilityHandler) List(c *gin.Context) {
	var req dto.FacilityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	facilities, err := h.facilitySvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.OK(c, gin.H{"list": facilities})
}

// Get 场地详情（含时间段）
// GET /api/v1/facilities/:id
func (h *FacilityHandler) Get(c *gin.Context) {
	facility, err := h.facilitySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.OK(c, facility)
}

// Create 新建场地
// POST /api/v1/facilities
func (h *FacilityHandler) Create(c *gin.Context) {
	var req dto.CreateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	facility, err := h.facilitySvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.Created(c, facility)
}

// Update 更新场地
// PUT /api/v1/facilities/:id
func (h *FacilityHandler) Update(c *gin.Context) {
	var req dto.UpdateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	facility, err := h.facilitySvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.OK(c, facility)
}

// ReplaceSlots 整体替换场地时间段
// PUT /api/v1/facilities/:id/time-slots
func (h *FacilityHandler) ReplaceSlots(c *gin.Context) {
	var req dto.ReplaceTimeSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	slots, err := h.facilitySvc.ReplaceSlots(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	response.OK(c, gin.H{"list": slots})
}

// Calendar 场地预约日历
// GET /api/v1/facilities/:id/calendar.ics?from=&to=
func (h *FacilityHandler) Calendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	file, err := h.facilitySvc.Calendar(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleFacilityError(c, err)
		return
	}
	sendFile(c, file)
}

// handleFacilityError 场地模块错误码 14xxx
func (h *FacilityHandler) handleFacilityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFacilityNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrFacilityCategoryNotFound):
		response.NotFound(c, 14002, err.Error())
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 14003, err.Error())
	case errors.Is(err, service.ErrSlotInvalidTime),
		errors.Is(err, service.ErrSlotInvalidRange):
		response.BadRequest(c, 14004, err.Error())
	case errors.Is(err, service.ErrSlotConflict):
		response.Conflict(c, 14005, err.Error())
	case errors.Is(err, service.ErrTooManySlots):
		response.UnprocessableEntity(c, 14006, err.Error())
	case errors.Is(err, service.ErrSlotNotInFacility):
		response.BadRequest(c, 14007, err.Error())
	case errors.Is(err, service.ErrInvalidCalendarRange):
		response.BadRequest(c, 14008, err.Error())
	default:
		respondCommonError(c, err)
	}
}
