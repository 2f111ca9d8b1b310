package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
	pkgerrors "club-manager/backend/pkg/errors"
	"club-manager/backend/pkg/validate"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound             = errors.New("用户不存在")
	ErrCustomerNotFound         = errors.New("顾客不存在或尚未确认")
	ErrApplicationNotFound      = errors.New("注册申请不存在")
	ErrPhoneExists              = errors.New("手机号已被使用")
	ErrUserSelfDelete           = errors.New("不能删除自己")
	ErrUserSelfPermissionChange = errors.New("不能修改自己的权限")
	ErrInvalidPermission        = errors.New("包含未知的权限")
	ErrInvalidBirthDate         = errors.New("出生日期格式应为 YYYY-MM-DD")
)

// UserService 员工与顾客业务接口
type UserService interface {
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)

	// ── 员工（超级管理员） ──
	ListStaff(ctx context.Context) ([]dto.UserResponse, error)
	CreateStaff(ctx context.Context, req *dto.CreateStaffRequest) (*dto.UserResponse, error)
	UpdateStaff(ctx context.Context, id string, req *dto.UpdateStaffRequest) (*dto.UserResponse, error)
	UpdatePermissions(ctx context.Context, id string, req *dto.UpdatePermissionsRequest, callerID string) (*dto.UserResponse, error)
	DeleteStaff(ctx context.Context, id string, callerID string) error
	ResetStaffPassword(ctx context.Context, id string) (*dto.ResetPasswordResponse, error)

	// ── 顾客 ──
	CreateCustomer(ctx context.Context, pol policy.Policy, req *dto.CreateCustomerRequest) (*dto.UserResponse, error)
	ListCustomers(ctx context.Context, req *dto.CustomerListRequest) ([]dto.UserResponse, int64, error)
	// Signup 顾客自助注册，等待员工确认
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.UserResponse, error)
	ListApplications(ctx context.Context) ([]dto.UserResponse, error)
	ConfirmApplication(ctx context.Context, id string) (*dto.UserResponse, error)
	// DismissApplication 拒绝注册申请（删除未确认用户）
	DismissApplication(ctx context.Context, id string) error

	ParseImportFile(reader io.Reader) ([]ImportCustomerRow, error)
	ImportCustomers(ctx context.Context, rows []ImportCustomerRow) (*dto.ImportCustomerResponse, error)
}

// ImportCustomerRow Excel 导入解析后的单行数据
type ImportCustomerRow struct {
	Row      int
	FullName string
	Phone    string
	Gender   string
	Email    string
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── 员工 ──────────────────────

func (s *userService) ListStaff(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.User.ListStaff(ctx)
	if err != nil {
		s.logger.Error("列出员工失败", zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *userService) CreateStaff(ctx context.Context, req *dto.CreateStaffRequest) (*dto.UserResponse, error) {
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}
	if err := s.checkPhoneFree(ctx, req.Phone, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Phone:        req.Phone,
		FullName:     req.FullName,
		Email:        req.Email,
		Gender:       req.Gender,
		PasswordHash: string(hash),
		IsStaff:      true,
		IsSuperuser:  req.IsSuperuser,
		IsActive:     true,
		Confirmed:    true,
		Permissions:  model.StringArray(req.Permissions),
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("员工已创建", zap.String("user_id", user.UserID), zap.Bool("superuser", user.IsSuperuser))
	return s.GetByID(ctx, user.UserID)
}

func (s *userService) UpdateStaff(ctx context.Context, id string, req *dto.UpdateStaffRequest) (*dto.UserResponse, error) {
	user, err := s.getStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.Phone != nil && *req.Phone != user.Phone {
		if err := s.checkPhoneFree(ctx, *req.Phone, id); err != nil {
			return nil, err
		}
		user.Phone = *req.Phone
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.updateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *userService) UpdatePermissions(ctx context.Context, id string, req *dto.UpdatePermissionsRequest, callerID string) (*dto.UserResponse, error) {
	if id == callerID {
		return nil, ErrUserSelfPermissionChange
	}
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}
	user, err := s.getStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	user.IsSuperuser = req.IsSuperuser
	user.Permissions = model.StringArray(req.Permissions)
	if err := s.updateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("员工权限已修改",
		zap.String("user_id", id),
		zap.Bool("superuser", req.IsSuperuser),
		zap.Strings("permissions", req.Permissions),
	)
	return s.GetByID(ctx, id)
}

func (s *userService) DeleteStaff(ctx context.Context, id string, callerID string) error {
	if id == callerID {
		return ErrUserSelfDelete
	}
	if _, err := s.getStaff(ctx, id); err != nil {
		return err
	}
	if err := s.repo.User.Delete(ctx, id); err != nil {
		s.logger.Error("删除员工失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("员工已删除", zap.String("user_id", id))
	return nil
}

func (s *userService) ResetStaffPassword(ctx context.Context, id string) (*dto.ResetPasswordResponse, error) {
	if _, err := s.getStaff(ctx, id); err != nil {
		return nil, err
	}

	tempPwd, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPwd), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.User.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("重置密码失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("员工密码已重置", zap.String("user_id", id))
	return &dto.ResetPasswordResponse{TemporaryPassword: tempPwd}, nil
}

// ────────────────────── 顾客 ──────────────────────

func (s *userService) CreateCustomer(ctx context.Context, pol policy.Policy, req *dto.CreateCustomerRequest) (*dto.UserResponse, error) {
	user, err := s.newCustomer(ctx, req)
	if err != nil {
		return nil, err
	}
	user.Confirmed = true
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("顾客已创建", zap.String("user_id", user.UserID), zap.String("by", pol.UserID()))
	return s.GetByID(ctx, user.UserID)
}

func (s *userService) ListCustomers(ctx context.Context, req *dto.CustomerListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.ListCustomers(ctx, strings.TrimSpace(req.Query), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出顾客失败", zap.Error(err))
		return nil, 0, err
	}
	return toUserResponses(users), total, nil
}

func (s *userService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.UserResponse, error) {
	user, err := s.newCustomer(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("收到顾客注册申请", zap.String("user_id", user.UserID))
	return s.GetByID(ctx, user.UserID)
}

func (s *userService) ListApplications(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.User.ListUnconfirmed(ctx)
	if err != nil {
		s.logger.Error("列出注册申请失败", zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *userService) ConfirmApplication(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Confirmed = true
	if err := s.updateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("注册申请已确认", zap.String("user_id", id))
	return s.GetByID(ctx, id)
}

func (s *userService) DismissApplication(ctx context.Context, id string) error {
	if _, err := s.getApplication(ctx, id); err != nil {
		return err
	}
	if err := s.repo.User.Delete(ctx, id); err != nil {
		s.logger.Error("删除注册申请失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("注册申请已拒绝", zap.String("user_id", id))
	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 500

var (
	ErrImportNoData      = errors.New("Excel文件中没有有效数据行")
	ErrImportTooManyRows = errors.New("单次导入最多500行")
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/手机号/性别）")
)

// ParseImportFile 解析顾客导入 Excel，列顺序不限
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportCustomerRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["full_name"] < 0 || colIndex["phone"] < 0 || colIndex["gender"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportCustomerRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		at := func(key string) string {
			if idx := colIndex[key]; idx >= 0 && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		item := ImportCustomerRow{
			Row:      i + 1,
			FullName: at("full_name"),
			Phone:    at("phone"),
			Gender:   strings.ToUpper(at("gender")),
			Email:    at("email"),
		}
		if item.FullName == "" && item.Phone == "" && item.Gender == "" && item.Email == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 表头 → 列索引，缺失列为 -1
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{"full_name": -1, "phone": -1, "gender": -1, "email": -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "姓名", "full_name", "name":
			idx["full_name"] = i
		case "手机号", "phone":
			idx["phone"] = i
		case "性别", "gender":
			idx["gender"] = i
		case "邮箱", "email":
			idx["email"] = i
		}
	}
	return idx
}

// ────────────────────── ImportCustomers ──────────────────────

// ImportCustomers 先逐行校验，再在一个事务中写入全部有效行
func (s *userService) ImportCustomers(ctx context.Context, rows []ImportCustomerRow) (*dto.ImportCustomerResponse, error) {
	resp := &dto.ImportCustomerResponse{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportCustomerError{Row: row, Reason: reason})
	}

	seen := make(map[string]int, len(rows))
	var valid []ImportCustomerRow
	for _, row := range rows {
		switch {
		case row.FullName == "" || row.Phone == "" || row.Gender == "":
			fail(row.Row, "必填字段为空")
			continue
		case !validate.IsPhone(row.Phone):
			fail(row.Row, fmt.Sprintf("手机号格式错误: %s", row.Phone))
			continue
		case row.Gender != model.GenderMale && row.Gender != model.GenderFemale:
			fail(row.Row, fmt.Sprintf("性别应为 M 或 F: %s", row.Gender))
			continue
		}
		if first, dup := seen[row.Phone]; dup {
			fail(row.Row, fmt.Sprintf("手机号与第 %d 行重复", first))
			continue
		}
		if _, err := s.repo.User.GetByPhone(ctx, row.Phone); err == nil {
			fail(row.Row, fmt.Sprintf("手机号已存在: %s", row.Phone))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		seen[row.Phone] = row.Row
		valid = append(valid, row)
	}

	if len(valid) == 0 {
		return resp, nil
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	for _, row := range valid {
		user := &model.User{
			Phone:     row.Phone,
			FullName:  row.FullName,
			Gender:    row.Gender,
			IsActive:  true,
			Confirmed: true,
		}
		if row.Email != "" {
			email := row.Email
			user.Email = &email
		}
		if err := txRepo.User.Create(ctx, user); err != nil {
			tx.Rollback()
			s.logger.Error("导入顾客写入失败，事务回滚", zap.Int("row", row.Row), zap.Error(err))
			return nil, fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", row.Row, err)
		}
		resp.Success++
	}
	if err := tx.Commit().Error; err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("顾客批量导入完成", zap.Int("success", resp.Success), zap.Int("failed", resp.Failed))
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userService) getStaff(ctx context.Context, id string) (*model.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsStaff && !user.IsSuperuser {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) getApplication(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if user.Confirmed || user.IsStaff || user.IsSuperuser {
		return nil, ErrApplicationNotFound
	}
	return user, nil
}

func (s *userService) newCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (*model.User, error) {
	if err := s.checkPhoneFree(ctx, req.Phone, ""); err != nil {
		return nil, err
	}
	user := &model.User{
		Phone:    req.Phone,
		FullName: req.FullName,
		Email:    req.Email,
		Gender:   req.Gender,
		IsActive: true,
	}
	if req.BirthDate != nil && *req.BirthDate != "" {
		d, err := dateutil.ParseDate(*req.BirthDate)
		if err != nil {
			return nil, ErrInvalidBirthDate
		}
		user.BirthDate = &d
	}
	return user, nil
}

func (s *userService) checkPhoneFree(ctx context.Context, phone, selfID string) error {
	existing, err := s.repo.User.GetByPhone(ctx, phone)
	if err == nil {
		if existing.UserID != selfID {
			return ErrPhoneExists
		}
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (s *userService) createUser(ctx context.Context, user *model.User) error {
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return ErrPhoneExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *userService) updateUser(ctx context.Context, user *model.User) error {
	if err := s.repo.User.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return err
		case errors.Is(err, pkgerrors.ErrDuplicate):
			return ErrPhoneExists
		}
		s.logger.Error("更新用户失败", zap.String("id", user.UserID), zap.Error(err))
		return err
	}
	return nil
}

func checkPermissions(perms []string) error {
	for _, p := range perms {
		if !policy.IsValid(p) {
			return fmt.Errorf("%w: %s", ErrInvalidPermission, p)
		}
	}
	return nil
}

func toUserResponses(users []model.User) []dto.UserResponse {
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 8 {
		length = 8
	}
	result := make([]byte, length)

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}
	return string(result), nil
}
