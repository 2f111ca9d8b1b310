package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/validate"
)

// ── 俱乐部资料模块业务错误 ──

var (
	ErrOrganizationNotConfigured = errors.New("尚未填写俱乐部资料")
	ErrInvalidTaxNumber          = errors.New("税号必须为 15 位数字")
	ErrInvalidCommercialRegister = errors.New("商业登记号必须为 14 位数字")
)

// OrganizationService 俱乐部资料业务接口
type OrganizationService interface {
	Get(ctx context.Context) (*dto.OrganizationResponse, error)
	// Save 创建或覆盖唯一的俱乐部资料
	Save(ctx context.Context, req *dto.OrganizationRequest) (*dto.OrganizationResponse, error)
}

type organizationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOrganizationService 创建 OrganizationService 实例
func NewOrganizationService(repo *repository.Repository, logger *zap.Logger) OrganizationService {
	return &organizationService{repo: repo, logger: logger}
}

func (s *organizationService) Get(ctx context.Context) (*dto.OrganizationResponse, error) {
	org, err := s.repo.Organization.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotConfigured
		}
		s.logger.Error("查询俱乐部资料失败", zap.Error(err))
		return nil, err
	}
	return toOrganizationResponse(org), nil
}

func (s *organizationService) Save(ctx context.Context, req *dto.OrganizationRequest) (*dto.OrganizationResponse, error) {
	if !validate.IsTaxNumber(req.TaxNumber) {
		return nil, ErrInvalidTaxNumber
	}
	if !validate.IsCommercialRegister(req.CommercialRegister) {
		return nil, ErrInvalidCommercialRegister
	}

	org := &model.Organization{
		Name:               req.Name,
		Phone:              req.Phone,
		Address:            req.Address,
		City:               req.City,
		TaxNumber:          req.TaxNumber,
		CommercialRegister: req.CommercialRegister,
		LogoURL:            req.LogoURL,
		BackgroundURL:      req.BackgroundURL,
	}
	if err := s.repo.Organization.Save(ctx, org); err != nil {
		s.logger.Error("保存俱乐部资料失败", zap.Error(err))
		return nil, err
	}

	saved, err := s.repo.Organization.Get(ctx)
	if err != nil {
		return nil, err
	}
	return toOrganizationResponse(saved), nil
}

// lookupOrganization 发票展示用，未配置时返回 nil
func lookupOrganization(ctx context.Context, repo *repository.Repository, logger *zap.Logger) *dto.OrganizationResponse {
	org, err := repo.Organization.Get(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("查询俱乐部资料失败", zap.Error(err))
		}
		return nil
	}
	return toOrganizationResponse(org)
}
