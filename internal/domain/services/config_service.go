package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/rules"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// DefaultConfigName 没有有效配置时使用内置规则的名称
const DefaultConfigName = "default"

// InterfaceRuleConfigService 考勤规则配置
type InterfaceRuleConfigService interface {
	Create(ctx context.Context, scope, name string, cfg rules.Config) (*models.AttendanceConfig, error)
	Get(ctx context.Context, id uint) (*models.AttendanceConfig, error)
	List(ctx context.Context, scope string) ([]models.AttendanceConfig, error)
	Activate(ctx context.Context, id uint) (*models.AttendanceConfig, error)
	ActiveFor(ctx context.Context, scope string) (rules.Config, string, bool, error)
	ImportYAML(ctx context.Context, r io.Reader, scope string, activate bool) (*models.AttendanceConfig, error)
}

// RuleConfigService 考勤规则配置服务
type RuleConfigService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewRuleConfigService 创建规则配置服务
func NewRuleConfigService(db *gorm.DB, cfg *config.Config) InterfaceRuleConfigService {
	return &RuleConfigService{
		DB:     db,
		Config: cfg,
	}
}

func (s *RuleConfigService) scope(scope string) string {
	if scope == "" {
		return s.Config.DefaultScope
	}
	return scope
}

// 1 Create 保存一份新配置，默认不生效
func (s *RuleConfigService) Create(ctx context.Context, scope, name string, cfg rules.Config) (*models.AttendanceConfig, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrConfigInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	row := cfg.ToModel(s.scope(scope), name)
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// 2 Get 根据ID获取配置
func (s *RuleConfigService) Get(ctx context.Context, id uint) (*models.AttendanceConfig, error) {
	var row models.AttendanceConfig
	if err := s.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &row, nil
}

// 3 List 列出 scope 下的所有配置，scope 为空时列出全部
func (s *RuleConfigService) List(ctx context.Context, scope string) ([]models.AttendanceConfig, error) {
	query := s.DB.WithContext(ctx).Model(&models.AttendanceConfig{})
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}
	var rows []models.AttendanceConfig
	err := query.Order("scope asc, name asc").Find(&rows).Error
	return rows, err
}

// 4 Activate 在同一事务中停用同 scope 的其他配置并启用目标配置
func (s *RuleConfigService) Activate(ctx context.Context, id uint) (*models.AttendanceConfig, error) {
	var row models.AttendanceConfig
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConfigNotFound
			}
			return err
		}
		if err := tx.Model(&models.AttendanceConfig{}).
			Where("scope = ? AND id <> ?", row.Scope, row.ID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		row.IsActive = true
		return tx.Model(&row).Update("is_active", true).Error
	})
	if err != nil {
		return nil, err
	}
	Logger.Info("[CONFIG] scope %s 启用配置 %s", row.Scope, row.Name)
	return &row, nil
}

// 5 ActiveFor 返回 scope 的有效配置；没有时返回默认规则，found 为 false
func (s *RuleConfigService) ActiveFor(ctx context.Context, scope string) (rules.Config, string, bool, error) {
	var row models.AttendanceConfig
	err := s.DB.WithContext(ctx).
		Where("scope = ? AND is_active = ?", s.scope(scope), true).
		Order("updated_at desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rules.DefaultConfig(), DefaultConfigName, false, nil
	}
	if err != nil {
		return rules.Config{}, "", false, err
	}
	return rules.FromModel(&row), row.Name, true, nil
}

// 6 ImportYAML 从规则文件导入配置，可选立即启用
func (s *RuleConfigService) ImportYAML(ctx context.Context, r io.Reader, scope string, activate bool) (*models.AttendanceConfig, error) {
	file, err := rules.LoadFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	row, err := s.Create(ctx, scope, file.Name, file.Config)
	if err != nil {
		return nil, err
	}
	Logger.Info("[CONFIG] 导入规则文件 %s 到 scope %s", row.Name, row.Scope)
	if !activate {
		return row, nil
	}
	return s.Activate(ctx, row.ID)
}
