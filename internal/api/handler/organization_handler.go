package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// OrganizationHandler 俱乐部资料 HTTP 处理器
type OrganizationHandler struct {
	orgSvc service.OrganizationService
}

// NewOrganizationHandler 创建 OrganizationHandler
func NewOrganizationHandler(orgSvc service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgSvc: orgSvc}
}

// Get 俱乐部资料
// GET /api/v1/organization
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgSvc.Get(c.Request.Context())
	if err != nil {
		handleOrganizationError(c, err)
		return
	}
	response.OK(c, org)
}

// Save 创建或更新俱乐部资料
// PUT /api/v1/organization
func (h *OrganizationHandler) Save(c *gin.Context) {
	var req dto.OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	org, err := h.orgSvc.Save(c.Request.Context(), &req)
	if err != nil {
		handleOrganizationError(c, err)
		return
	}
	response.OK(c, org)
}

// handleOrganizationError 俱乐部资料错误码 13xxx；发票接口也会遇到未配置的情况
func handleOrganizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrganizationNotConfigured):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrInvalidTaxNumber),
		errors.Is(err, service.ErrInvalidCommercialRegister):
		response.BadRequest(c, 13002, err.Error())
	default:
		respondCommonError(c, err)
	}
}
