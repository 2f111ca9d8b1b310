package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// AttendanceHandler 训练考勤 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Enrollment 训练日的在册学员
// GET /api/v1/training-days/:id/enrollment
func (h *AttendanceHandler) Enrollment(c *gin.Context) {
	result, err := h.attendanceSvc.Enrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// Create 记录今天的考勤
// POST /api/v1/training-days/:id/records
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req dto.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Create(c.Request.Context(), pol, c.Param("id"), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.Created(c, result)
}

// List 历史考勤记录
// GET /api/v1/attendance-records
func (h *AttendanceHandler) List(c *gin.Context) {
	page := bindPage(c)
	list, total, err := h.attendanceSvc.List(c.Request.Context(), page)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// Get GET /api/v1/attendance-records/:id
func (h *AttendanceHandler) Get(c *gin.Context) {
	result, err := h.attendanceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 修改考勤
// PUT /api/v1/attendance-records/:id
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req dto.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	result, err := h.attendanceSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// Export 考勤表（xlsx）
// GET /api/v1/attendance-records/:id/export
func (h *AttendanceHandler) Export(c *gin.Context) {
	file, err := h.attendanceSvc.ExportSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	sendFile(c, file)
}

// handleAttendanceError 考勤模块错误码 19xxx
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		response.NotFound(c, 19001, err.Error())
	case errors.Is(err, service.ErrTrainingDayNotFound):
		response.NotFound(c, 19002, err.Error())
	case errors.Is(err, service.ErrNotTrainingDay):
		response.UnprocessableEntity(c, 19003, err.Error())
	case errors.Is(err, service.ErrSessionAlreadyRecorded):
		response.Conflict(c, 19004, err.Error())
	case errors.Is(err, service.ErrUnknownStudent):
		response.BadRequest(c, 19005, err.Error())
	case errors.Is(err, service.ErrDivisionNotFound):
		response.NotFound(c, 17001, err.Error())
	case errors.Is(err, service.ErrDivisionSuspended):
		response.UnprocessableEntity(c, 17005, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		respondCommonError(c, err)
	}
}
