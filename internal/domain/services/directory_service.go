package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
)

// InterfaceDirectoryService 设备上的用户、生物模板与操作日志
type InterfaceDirectoryService interface {
	ImportUser(ctx context.Context, user *models.DeviceUser) (bool, error)
	SaveFingerprint(ctx context.Context, tmpl *models.FingerprintTemplate) error
	SaveFace(ctx context.Context, tmpl *models.FaceTemplate) error
	RecordOperation(ctx context.Context, op *models.DeviceOperationLog) error
	ListUsers(ctx context.Context, deviceID uint, page models.PaginationQuery) ([]models.DeviceUser, int64, error)
	ListOperations(ctx context.Context, deviceID uint, page models.PaginationQuery) ([]models.DeviceOperationLog, int64, error)
}

// DirectoryService 设备目录服务
type DirectoryService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewDirectoryService 创建设备目录服务
func NewDirectoryService(db *gorm.DB, cfg *config.Config) InterfaceDirectoryService {
	return &DirectoryService{
		DB:     db,
		Config: cfg,
	}
}

// 1 ImportUser 只创建不覆盖：(device, subject) 已存在时返回 false
func (s *DirectoryService) ImportUser(ctx context.Context, user *models.DeviceUser) (bool, error) {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// 2 SaveFingerprint 按 (device, subject, index) 写入或替换指纹模板，并标记用户有指纹
func (s *DirectoryService) SaveFingerprint(ctx context.Context, tmpl *models.FingerprintTemplate) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "subject_id"}, {Name: "finger_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"size", "valid", "template", "updated_at"}),
		}).Create(tmpl).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.FingerprintTemplate{}).
			Where("device_id = ? AND subject_id = ?", tmpl.DeviceID, tmpl.SubjectID).
			Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.DeviceUser{}).
			Where("device_id = ? AND subject_id = ?", tmpl.DeviceID, tmpl.SubjectID).
			Updates(map[string]interface{}{"has_fingerprint": true, "fingerprint_count": count}).Error
	})
}

// 3 SaveFace 按 (device, subject, index) 写入或替换人脸模板
func (s *DirectoryService) SaveFace(ctx context.Context, tmpl *models.FaceTemplate) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "subject_id"}, {Name: "face_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"size", "valid", "template", "updated_at"}),
		}).Create(tmpl).Error; err != nil {
			return err
		}
		return tx.Model(&models.DeviceUser{}).
			Where("device_id = ? AND subject_id = ?", tmpl.DeviceID, tmpl.SubjectID).
			Update("has_face", true).Error
	})
}

// 4 RecordOperation 写入设备操作日志
func (s *DirectoryService) RecordOperation(ctx context.Context, op *models.DeviceOperationLog) error {
	if op.OperationType == "" {
		op.OperationType = models.OperationTypeFromCode(op.OperationCode)
	}
	return s.DB.WithContext(ctx).Create(op).Error
}

// 5 ListUsers 设备用户列表
func (s *DirectoryService) ListUsers(ctx context.Context, deviceID uint, page models.PaginationQuery) ([]models.DeviceUser, int64, error) {
	page.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.DeviceUser{}).Where("device_id = ?", deviceID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.DeviceUser
	err := query.Order("subject_id asc").Limit(page.PageSize).Offset(page.Offset()).Find(&users).Error
	return users, total, err
}

// 6 ListOperations 设备操作日志列表
func (s *DirectoryService) ListOperations(ctx context.Context, deviceID uint, page models.PaginationQuery) ([]models.DeviceOperationLog, int64, error) {
	page.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.DeviceOperationLog{}).Where("device_id = ?", deviceID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ops []models.DeviceOperationLog
	err := query.Order("operated_at desc").Limit(page.PageSize).Offset(page.Offset()).Find(&ops).Error
	return ops, total, err
}
