package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// InterfaceAdminService Admin服务接口
type InterfaceAdminService interface {
	CheckPassword(password, hash string) bool
	GetAdminByID(id uint) (*models.Admin, error)
	GetAdminByUsername(username string) (*models.Admin, error)
	GetAllAdmins(page models.PaginationQuery, search string) ([]models.Admin, int64, error)
	CreateAdmin(admin *models.Admin) error
	UpdateAdmin(id uint, updates map[string]interface{}) (*models.Admin, error)
	DeleteAdmin(id uint) error
	EnsureDefaultAdmin() error
}

// AdminService 提供管理员相关的服务
type AdminService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewAdminService 创建一个新的管理员服务
func NewAdminService(db *gorm.DB, cfg *config.Config) InterfaceAdminService {
	return &AdminService{
		DB:     db,
		Config: cfg,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}
	return string(hashed), nil
}

// 1 CheckPassword 验证密码是否匹配
func (s *AdminService) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// 2 GetAllAdmins 获取所有管理员，支持分页
func (s *AdminService) GetAllAdmins(page models.PaginationQuery, search string) ([]models.Admin, int64, error) {
	page.Normalize()
	query := s.DB.Model(&models.Admin{})
	if search != "" {
		query = query.Where("username LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var admins []models.Admin
	if err := query.Order("id asc").Offset(page.Offset()).Limit(page.PageSize).Find(&admins).Error; err != nil {
		return nil, 0, err
	}
	return admins, total, nil
}

// 3 GetAdminByID 根据ID获取管理员
func (s *AdminService) GetAdminByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := s.DB.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// 4 GetAdminByUsername 根据用户名获取管理员
func (s *AdminService) GetAdminByUsername(username string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.DB.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// 5 CreateAdmin 创建新管理员
func (s *AdminService) CreateAdmin(admin *models.Admin) error {
	var count int64
	if err := s.DB.Model(&models.Admin{}).Where("username = ?", admin.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAdminAlreadyExist
	}

	hashed, err := hashPassword(admin.Password)
	if err != nil {
		return err
	}
	admin.Password = hashed
	return s.DB.Create(admin).Error
}

// 6 UpdateAdmin 更新管理员信息
func (s *AdminService) UpdateAdmin(id uint, updates map[string]interface{}) (*models.Admin, error) {
	admin, err := s.GetAdminByID(id)
	if err != nil {
		return nil, err
	}

	if username, ok := updates["username"].(string); ok && username != admin.Username {
		var count int64
		if err := s.DB.Model(&models.Admin{}).Where("username = ? AND id != ?", username, admin.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrAdminAlreadyExist
		}
	}

	if password, ok := updates["password"].(string); ok {
		hashed, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}

	if err := s.DB.Model(admin).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetAdminByID(id)
}

// 7 DeleteAdmin 删除管理员，至少保留一个
func (s *AdminService) DeleteAdmin(id uint) error {
	var count int64
	if err := s.DB.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count <= 1 {
		return errors.New("系统必须至少有一个管理员，无法删除最后一个管理员")
	}

	result := s.DB.Delete(&models.Admin{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// 8 EnsureDefaultAdmin 没有任何管理员时创建默认账号 admin
func (s *AdminService) EnsureDefaultAdmin() error {
	var count int64
	if err := s.DB.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	admin := &models.Admin{
		Username: "admin",
		Password: s.Config.DefaultAdminPassword,
		Role:     "admin",
		Status:   "active",
	}
	if err := s.CreateAdmin(admin); err != nil {
		return err
	}
	Logger.Info("已创建默认管理员账号: admin")
	return nil
}
