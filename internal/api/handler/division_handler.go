package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// DivisionHandler 运动类别、训练班与训练时间 HTTP 处理器
type DivisionHandler struct {
	divisionSvc service.DivisionService
}

// NewDivisionHandler 创建 DivisionHandler
func NewDivisionHandler(divisionSvc service.DivisionService) *DivisionHandler {
	return &DivisionHandler{divisionSvc: divisionSvc}
}

// ListCategories GET /api/v1/sport-categories
func (h *DivisionHandler) ListCategories(c *gin.Context) {
	categories, err := h.divisionSvc.ListCategories(c.Request.Context())
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": categories})
}

// CreateCategory POST /api/v1/sport-categories
func (h *DivisionHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	category, err := h.divisionSvc.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.Created(c, category)
}

// List GET /api/v1/divisions
func (h *DivisionHandler) List(c *gin.Context) {
	var req dto.DivisionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	divisions, err := h.divisionSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": divisions})
}

// Get GET /api/v1/divisions/:id
func (h *DivisionHandler) Get(c *gin.Context) {
	division, err := h.divisionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, division)
}

// Create POST /api/v1/divisions
func (h *DivisionHandler) Create(c *gin.Context) {
	var req dto.CreateDivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	division, err := h.divisionSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.Created(c, division)
}

// Update PUT /api/v1/divisions/:id
func (h *DivisionHandler) Update(c *gin.Context) {
	var req dto.UpdateDivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	division, err := h.divisionSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, division)
}

// Price 训练班默认月费，供订阅表单预填
// GET /api/v1/divisions/:id/price
func (h *DivisionHandler) Price(c *gin.Context) {
	result, err := h.divisionSvc.Price(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, result)
}

// ReplaceTrainingDays 整体替换每周训练时间
// PUT /api/v1/divisions/:id/training-days
func (h *DivisionHandler) ReplaceTrainingDays(c *gin.Context) {
	var req dto.ReplaceTrainingDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	days, err := h.divisionSvc.ReplaceTrainingDays(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": days})
}

// TodaySessions 今天的训练课
// GET /api/v1/training-sessions/today
func (h *DivisionHandler) TodaySessions(c *gin.Context) {
	sessions, err := h.divisionSvc.TodaySessions(c.Request.Context())
	if err != nil {
		h.handleDivisionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": sessions})
}

// handleDivisionError 训练班模块错误码 17xxx
func (h *DivisionHandler) handleDivisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDivisionNotFound):
		response.NotFound(c, 17001, err.Error())
	case errors.Is(err, service.ErrSportCategoryNotFound):
		response.NotFound(c, 17002, err.Error())
	case errors.Is(err, service.ErrTooManyTrainingDays):
		response.UnprocessableEntity(c, 17003, err.Error())
	case errors.Is(err, service.ErrTrainingDayInvalidRange),
		errors.Is(err, service.ErrSlotInvalidTime):
		response.BadRequest(c, 17004, err.Error())
	default:
		respondCommonError(c, err)
	}
}
