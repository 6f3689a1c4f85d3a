package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/adms"
	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// CommandFilter 命令列表过滤条件
type CommandFilter struct {
	models.PaginationQuery
	DeviceID uint   `form:"device_id"`
	Status   string `form:"status"`
	Kind     string `form:"kind"`
}

// BulkResult 批量下发结果
type BulkResult struct {
	Created  int              `json:"created"`
	Failed   int              `json:"failed"`
	Commands []models.Command `json:"commands"`
	Errors   map[uint]string  `json:"errors,omitempty"`
}

// InterfaceCommandService 命令队列
type InterfaceCommandService interface {
	Enqueue(ctx context.Context, deviceID uint, kind models.CommandKind, content string) (*models.Command, error)
	BulkEnqueue(ctx context.Context, deviceIDs []uint, kind models.CommandKind, content string) BulkResult
	NextPending(ctx context.Context, deviceID uint) (*models.Command, error)
	MarkSent(ctx context.Context, cmd *models.Command, correlationID string) (bool, error)
	ClaimNext(ctx context.Context, deviceID uint) (*models.Command, error)
	Acknowledge(ctx context.Context, deviceID uint, correlationID string, returnCode int, body string) (bool, error)
	Get(ctx context.Context, id uint) (*models.Command, error)
	List(ctx context.Context, filter CommandFilter) ([]models.Command, int64, error)
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CommandService 命令队列服务
type CommandService struct {
	DB       *gorm.DB
	Config   *config.Config
	Clock    clock.Clock
	Notifier InterfaceNotifierService
}

// NewCommandService 创建命令队列服务
func NewCommandService(db *gorm.DB, cfg *config.Config, clk clock.Clock, notifier InterfaceNotifierService) InterfaceCommandService {
	return &CommandService{
		DB:       db,
		Config:   cfg,
		Clock:    clk,
		Notifier: notifier,
	}
}

// 1 Enqueue 为推送设备排队一条命令
func (s *CommandService) Enqueue(ctx context.Context, deviceID uint, kind models.CommandKind, content string) (*models.Command, error) {
	if !kind.Valid() {
		return nil, ErrCommandKindInvalid
	}
	var device models.Device
	if err := s.DB.WithContext(ctx).First(&device, deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if !device.SupportsPush() {
		return nil, ErrCommandUnsupported
	}
	// 入队时校验内容，避免设备轮询时才发现命令无法生成
	if _, err := adms.WireCommand(kind, content, s.Clock.Now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommandKindInvalid, err)
	}

	cmd := models.Command{
		DeviceID: deviceID,
		Kind:     kind,
		Content:  content,
		Status:   models.CommandPending,
	}
	if err := s.DB.WithContext(ctx).Create(&cmd).Error; err != nil {
		return nil, err
	}
	Logger.Info("[COMMAND] 设备 %d 排队命令 %s (#%d)", deviceID, kind, cmd.ID)
	return &cmd, nil
}

// 2 BulkEnqueue 批量排队，单个设备失败不影响其他设备
func (s *CommandService) BulkEnqueue(ctx context.Context, deviceIDs []uint, kind models.CommandKind, content string) BulkResult {
	result := BulkResult{Commands: []models.Command{}, Errors: map[uint]string{}}
	for _, id := range deviceIDs {
		cmd, err := s.Enqueue(ctx, id, kind, content)
		if err != nil {
			result.Failed++
			result.Errors[id] = err.Error()
			continue
		}
		result.Created++
		result.Commands = append(result.Commands, *cmd)
	}
	return result
}

// 3 NextPending 最早的待下发命令，没有时返回 nil
func (s *CommandService) NextPending(ctx context.Context, deviceID uint) (*models.Command, error) {
	var cmd models.Command
	err := s.DB.WithContext(ctx).
		Where("device_id = ? AND status = ?", deviceID, models.CommandPending).
		Order("created_at asc, id asc").
		First(&cmd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// 4 MarkSent pending -> sent。命令已被其他请求取走时返回 false
func (s *CommandService) MarkSent(ctx context.Context, cmd *models.Command, correlationID string) (bool, error) {
	now := s.Clock.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Command{}).
		Where("id = ? AND status = ?", cmd.ID, models.CommandPending).
		Updates(map[string]interface{}{
			"status":         models.CommandSent,
			"sent_at":        now,
			"correlation_id": correlationID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cmd.Status = models.CommandSent
	cmd.SentAt = &now
	cmd.CorrelationID = &correlationID
	return true, nil
}

// 5 ClaimNext 取出并标记下一条命令，关联ID为命令ID
func (s *CommandService) ClaimNext(ctx context.Context, deviceID uint) (*models.Command, error) {
	for {
		cmd, err := s.NextPending(ctx, deviceID)
		if err != nil || cmd == nil {
			return nil, err
		}
		ok, err := s.MarkSent(ctx, cmd, strconv.FormatUint(uint64(cmd.ID), 10))
		if err != nil {
			return nil, err
		}
		if ok {
			if s.Notifier != nil {
				s.Notifier.Publish(EventCommandSent, map[string]interface{}{
					"command_id": cmd.ID, "device_id": cmd.DeviceID, "kind": cmd.Kind,
				})
			}
			return cmd, nil
		}
	}
}

// 6 Acknowledge 设备回执：Return >= 0 为执行成功，否则失败。
// 只匹配该设备自己的命令，未知、重复或其他设备的回执不报错，返回 false。
func (s *CommandService) Acknowledge(ctx context.Context, deviceID uint, correlationID string, returnCode int, body string) (bool, error) {
	status := models.CommandExecuted
	if returnCode < 0 {
		status = models.CommandFailed
	}
	now := s.Clock.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Command{}).
		Where("device_id = ? AND correlation_id = ? AND status = ?", deviceID, correlationID, models.CommandSent).
		Updates(map[string]interface{}{
			"status":      status,
			"return_code": returnCode,
			"response":    body,
			"executed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		Logger.Debug("[COMMAND] 忽略未知或重复的回执: device=%d ID=%s Return=%d", deviceID, correlationID, returnCode)
		return false, nil
	}
	if s.Notifier != nil {
		s.Notifier.Publish(EventCommandAcked, map[string]interface{}{
			"correlation_id": correlationID, "status": status, "return": returnCode,
		})
	}
	return true, nil
}

// 7 Get 根据ID获取命令
func (s *CommandService) Get(ctx context.Context, id uint) (*models.Command, error) {
	var cmd models.Command
	if err := s.DB.WithContext(ctx).First(&cmd, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommandNotFound
		}
		return nil, err
	}
	return &cmd, nil
}

// 8 List 分页查询命令
func (s *CommandService) List(ctx context.Context, filter CommandFilter) ([]models.Command, int64, error) {
	filter.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.Command{})
	if filter.DeviceID != 0 {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "id asc"
	if filter.Desc {
		order = "id desc"
	}
	var cmds []models.Command
	err := query.Order(order).Limit(filter.PageSize).Offset(filter.Offset()).Find(&cmds).Error
	return cmds, total, err
}

// 9 ExpireStale 已下发超过 olderThan 仍无回执的命令标记为 timeout
func (s *CommandService) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.Clock.Now().UTC().Add(-olderThan)
	res := s.DB.WithContext(ctx).Model(&models.Command{}).
		Where("status = ? AND sent_at < ?", models.CommandSent, cutoff).
		Update("status", models.CommandTimeout)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		Logger.Warning("[COMMAND] %d 条命令超时", res.RowsAffected)
		if s.Notifier != nil {
			s.Notifier.Publish(EventCommandTimeout, map[string]interface{}{"count": res.RowsAffected})
		}
	}
	return res.RowsAffected, nil
}
