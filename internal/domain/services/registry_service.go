package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// DeviceObservation 设备每次连接时上报的信息，空值不覆盖已有字段
type DeviceObservation struct {
	IPAddress        string
	FirmwareVersion  string
	PushVersion      string
	Platform         string
	OEMVendor        string
	MACAddress       string
	UserCount        int
	FingerprintCount int
	FaceCount        int
	TransactionCount int
	Options          map[string]string
}

// DeviceFilter 设备列表过滤条件
type DeviceFilter struct {
	models.PaginationQuery
	Scope          string `form:"scope"`
	ConnectionType string `form:"connection_type"`
	Active         *bool  `form:"active"`
}

// InterfaceRegistryService 设备注册表
type InterfaceRegistryService interface {
	RegisterOrUpdate(serial string, observed DeviceObservation) (*models.Device, error)
	Register(device *models.Device) error
	MarkOffline(deviceID uint) error
	IsOnline(device *models.Device) bool
	RecordHeartbeat(device *models.Device, observed DeviceObservation) error
	GetBySerial(serial string) (*models.Device, error)
	GetByID(id uint) (*models.Device, error)
	List(filter DeviceFilter) ([]models.Device, int64, error)
	Update(id uint, updates map[string]interface{}) (*models.Device, error)
	Deactivate(id uint) error
	Heartbeats(deviceID uint, limit int) ([]models.DeviceHeartbeat, error)
}

// RegistryService 提供设备注册相关的服务
type RegistryService struct {
	DB       *gorm.DB
	Config   *config.Config
	Clock    clock.Clock
	Redis    InterfaceRedisService
	Notifier InterfaceNotifierService
}

// NewRegistryService 创建设备注册服务，redis 可以为 nil
func NewRegistryService(db *gorm.DB, cfg *config.Config, clk clock.Clock, redis InterfaceRedisService, notifier InterfaceNotifierService) InterfaceRegistryService {
	return &RegistryService{
		DB:       db,
		Config:   cfg,
		Clock:    clk,
		Redis:    redis,
		Notifier: notifier,
	}
}

// 1 RegisterOrUpdate 按序列号注册或更新设备，并刷新最后活动时间
func (s *RegistryService) RegisterOrUpdate(serial string, observed DeviceObservation) (*models.Device, error) {
	if serial == "" {
		return nil, fmt.Errorf("empty serial number")
	}
	now := s.Clock.Now()

	var device models.Device
	err := s.DB.Where("serial_number = ?", serial).First(&device).Error
	created := false
	wasOnline := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		device = models.Device{
			SerialNumber:   serial,
			Name:           serial,
			ConnectionType: models.ConnectionPush,
			Scope:          s.Config.DefaultScope,
			IsActive:       true,
		}
		created = true
	case err != nil:
		return nil, err
	default:
		wasOnline = device.IsOnlineAt(now)
	}

	mergeObservation(&device, observed)
	device.IsOnline = true
	device.LastActivity = &now

	if created {
		if err := s.DB.Create(&device).Error; err != nil {
			// 并发注册同一序列号
			if existing, gerr := s.GetBySerial(serial); gerr == nil {
				return existing, nil
			}
			return nil, err
		}
		Logger.Info("[REGISTRY] 新设备注册: %s", serial)
	} else if err := s.DB.Save(&device).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if err := s.Redis.CacheDeviceLastSeen(serial, now); err != nil {
			Logger.Debug("[REGISTRY] 缓存设备在线时间失败: %v", err)
		}
	}
	if !wasOnline && s.Notifier != nil {
		s.Notifier.Publish(EventDeviceOnline, map[string]interface{}{
			"device_id":     device.ID,
			"serial_number": device.SerialNumber,
			"ip_address":    device.IPAddress,
		})
	}
	return &device, nil
}

// mergeObservation 只合并非空值
func mergeObservation(d *models.Device, o DeviceObservation) {
	if o.IPAddress != "" {
		d.IPAddress = o.IPAddress
	}
	if o.FirmwareVersion != "" {
		d.FirmwareVersion = o.FirmwareVersion
	}
	if o.PushVersion != "" {
		d.PushVersion = o.PushVersion
	}
	if o.Platform != "" {
		d.Platform = o.Platform
	}
	if o.OEMVendor != "" {
		d.OEMVendor = o.OEMVendor
	}
	if o.MACAddress != "" {
		d.MACAddress = o.MACAddress
	}
	if o.UserCount > 0 {
		d.UserCount = o.UserCount
	}
	if o.FingerprintCount > 0 {
		d.FingerprintCount = o.FingerprintCount
	}
	if o.FaceCount > 0 {
		d.FaceCount = o.FaceCount
	}
	if o.TransactionCount > 0 {
		d.TransactionCount = o.TransactionCount
	}
	if len(o.Options) > 0 {
		if d.Options == nil {
			d.Options = map[string]interface{}{}
		}
		for k, v := range o.Options {
			d.Options[k] = v
		}
	}
}

// 2 Register 手动登记设备 (TCP 拉取设备需要 IP)
func (s *RegistryService) Register(device *models.Device) error {
	var count int64
	if err := s.DB.Model(&models.Device{}).Where("serial_number = ?", device.SerialNumber).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDeviceAlreadyExist
	}
	if device.ConnectionType == "" {
		device.ConnectionType = models.ConnectionPush
	}
	if device.Scope == "" {
		device.Scope = s.Config.DefaultScope
	}
	if device.Port == 0 {
		device.Port = 4370
	}
	device.IsActive = true
	return s.DB.Create(device).Error
}

// 3 MarkOffline 标记设备离线
func (s *RegistryService) MarkOffline(deviceID uint) error {
	res := s.DB.Model(&models.Device{}).Where("id = ?", deviceID).Update("is_online", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	if s.Notifier != nil {
		s.Notifier.Publish(EventDeviceOffline, map[string]interface{}{"device_id": deviceID})
	}
	return nil
}

// 4 IsOnline 最后活动时间在窗口内视为在线
func (s *RegistryService) IsOnline(device *models.Device) bool {
	return device.IsOnlineAt(s.Clock.Now())
}

// 5 RecordHeartbeat 记录一次心跳
func (s *RegistryService) RecordHeartbeat(device *models.Device, observed DeviceObservation) error {
	hb := models.DeviceHeartbeat{
		DeviceID:         device.ID,
		IPAddress:        observed.IPAddress,
		UserCount:        observed.UserCount,
		FingerprintCount: observed.FingerprintCount,
		FaceCount:        observed.FaceCount,
		TransactionCount: observed.TransactionCount,
		ReceivedAt:       s.Clock.Now(),
	}
	return s.DB.Create(&hb).Error
}

// 6 GetBySerial 根据序列号获取设备
func (s *RegistryService) GetBySerial(serial string) (*models.Device, error) {
	var device models.Device
	if err := s.DB.Where("serial_number = ?", serial).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// 7 GetByID 根据ID获取设备
func (s *RegistryService) GetByID(id uint) (*models.Device, error) {
	var device models.Device
	if err := s.DB.First(&device, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// 8 List 分页获取设备列表
func (s *RegistryService) List(filter DeviceFilter) ([]models.Device, int64, error) {
	filter.Normalize()
	query := s.DB.Model(&models.Device{})
	if filter.Scope != "" {
		query = query.Where("scope = ?", filter.Scope)
	}
	if filter.ConnectionType != "" {
		query = query.Where("connection_type = ?", filter.ConnectionType)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "id asc"
	if filter.Desc {
		order = "id desc"
	}
	var devices []models.Device
	if err := query.Order(order).Limit(filter.PageSize).Offset(filter.Offset()).Find(&devices).Error; err != nil {
		return nil, 0, err
	}
	return devices, total, nil
}

// 9 Update 更新设备的可配置字段
func (s *RegistryService) Update(id uint, updates map[string]interface{}) (*models.Device, error) {
	device, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	allowed := map[string]bool{
		"name": true, "scope": true, "connection_type": true, "ip_address": true,
		"port": true, "comm_key": true, "tcp_timeout_seconds": true,
		"timezone_offset_minutes": true, "is_active": true,
	}
	filtered := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return device, nil
	}
	if err := s.DB.Model(device).Updates(filtered).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// 10 Deactivate 停用设备，不删除任何数据
func (s *RegistryService) Deactivate(id uint) error {
	res := s.DB.Model(&models.Device{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active": false,
		"is_online": false,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// 11 Heartbeats 最近的心跳记录
func (s *RegistryService) Heartbeats(deviceID uint, limit int) ([]models.DeviceHeartbeat, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var beats []models.DeviceHeartbeat
	err := s.DB.Where("device_id = ?", deviceID).Order("received_at desc").Limit(limit).Find(&beats).Error
	return beats, err
}
