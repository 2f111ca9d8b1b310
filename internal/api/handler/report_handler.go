package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// ReportHandler 预约与订阅报表 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// ResolvePeriod 把报表周期选择解析为日期区间
// GET /api/v1/reservations/reports/period
func (h *ReportHandler) ResolvePeriod(c *gin.Context) {
	var req dto.ReportPeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	result, err := h.reportSvc.ResolvePeriod(&req)
	if err != nil {
		handleReportError(c, err)
		return
	}
	response.OK(c, result)
}

// ReservationSummary 预约汇总
// GET /api/v1/reservations/reports/summary
func (h *ReportHandler) ReservationSummary(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	result, err := h.reportSvc.ReservationSummary(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}
	response.OK(c, result)
}

// ReservationRecords 预约明细表（xlsx）
// GET /api/v1/reservations/reports/records
func (h *ReportHandler) ReservationRecords(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	file, err := h.reportSvc.ReservationRecords(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}
	sendFile(c, file)
}

// SubscriptionSummary 订阅汇总
// GET /api/v1/subscriptions/reports/summary
func (h *ReportHandler) SubscriptionSummary(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	result, err := h.reportSvc.SubscriptionSummary(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}
	response.OK(c, result)
}

// SubscriptionSummaryExport 订阅汇总（xlsx）
// GET /api/v1/subscriptions/reports/summary.xlsx
func (h *ReportHandler) SubscriptionSummaryExport(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	file, err := h.reportSvc.SubscriptionSummaryExport(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}
	sendFile(c, file)
}

func bindRange(c *gin.Context) (*dto.DateRangeRequest, bool) {
	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "请提供 start_date 与 end_date（YYYY-MM-DD）")
		return nil, false
	}
	return &req, true
}

// handleReportError 报表错误码 16xxx
func handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidReportRange):
		response.BadRequest(c, 16001, err.Error())
	case errors.Is(err, service.ErrInvalidReportPeriod):
		response.BadRequest(c, 16002, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		respondCommonError(c, err)
	}
}
