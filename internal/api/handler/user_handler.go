package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/response"
)

// UserHandler 员工与顾客 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ────────────────────── 员工 ──────────────────────

// ListStaff 员工列表
// GET /api/v1/staff
func (h *UserHandler) ListStaff(c *gin.Context) {
	users, err := h.userSvc.ListStaff(c.Request.Context())
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// GetStaff 员工详情
// GET /api/v1/staff/:id
func (h *UserHandler) GetStaff(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// CreateStaff 创建员工
// POST /api/v1/staff
func (h *UserHandler) CreateStaff(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.Created(c, user)
}

// UpdateStaff 更新员工资料
// PUT /api/v1/staff/:id
func (h *UserHandler) UpdateStaff(c *gin.Context) {
	var req dto.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.UpdateStaff(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// UpdatePermissions 修改员工权限与超级管理员标记
// PUT /api/v1/staff/:id/permissions
func (h *UserHandler) UpdatePermissions(c *gin.Context) {
	var req dto.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.UpdatePermissions(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// DeleteStaff 删除员工
// DELETE /api/v1/staff/:id
func (h *UserHandler) DeleteStaff(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.userSvc.DeleteStaff(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, nil)
}

// ResetStaffPassword 重置员工密码为临时密码
// POST /api/v1/staff/:id/reset-password
func (h *UserHandler) ResetStaffPassword(c *gin.Context) {
	result, err := h.userSvc.ResetStaffPassword(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, result)
}

// ────────────────────── 顾客 ──────────────────────

// ListCustomers 已确认顾客列表
// GET /api/v1/customers?q=
func (h *UserHandler) ListCustomers(c *gin.Context) {
	var req dto.CustomerListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.ListCustomers(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// CreateCustomer 员工直接创建顾客（已确认）
// POST /api/v1/customers
func (h *UserHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	pol, ok := MustGetPolicy(c)
	if !ok {
		return
	}

	user, err := h.userSvc.CreateCustomer(c.Request.Context(), pol, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.Created(c, user)
}

// ImportCustomers Excel 批量导入顾客
// POST /api/v1/customers/import (multipart/form-data, field="file")
func (h *UserHandler) ImportCustomers(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12010, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	result, err := h.userSvc.ImportCustomers(c.Request.Context(), rows)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, result)
}

// Signup 顾客自助注册（无需登录）
// POST /api/v1/signup
func (h *UserHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Signup(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.Created(c, user)
}

// ListApplications 待确认的注册申请
// GET /api/v1/customers/applications
func (h *UserHandler) ListApplications(c *gin.Context) {
	users, err := h.userSvc.ListApplications(c.Request.Context())
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// ConfirmApplication 确认注册申请
// POST /api/v1/customers/applications/:id/confirm
func (h *UserHandler) ConfirmApplication(c *gin.Context) {
	user, err := h.userSvc.ConfirmApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// DismissApplication 拒绝注册申请
// DELETE /api/v1/customers/applications/:id
func (h *UserHandler) DismissApplication(c *gin.Context) {
	if err := h.userSvc.DismissApplication(c.Request.Context(), c.Param("id")); err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleUserError 用户模块错误码 12xxx
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCustomerNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrApplicationNotFound):
		response.NotFound(c, 12002, err.Error())
	case errors.Is(err, service.ErrPhoneExists):
		response.Conflict(c, 12003, err.Error())
	case errors.Is(err, service.ErrUserSelfDelete),
		errors.Is(err, service.ErrUserSelfPermissionChange):
		response.Forbidden(c, 12004, err.Error())
	case errors.Is(err, service.ErrInvalidPermission):
		response.BadRequest(c, 12005, err.Error())
	case errors.Is(err, service.ErrInvalidBirthDate):
		response.BadRequest(c, 12006, err.Error())
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 12011, err.Error())
	default:
		respondCommonError(c, err)
	}
}
