package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/zk"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// PullCommands TCP 拉取模式支持的命令
var PullCommands = []models.CommandKind{
	models.CommandReboot,
	models.CommandSyncTime,
	models.CommandClearLog,
	models.CommandGetDeviceInfo,
}

// SyncRequest 一次拉取同步
type SyncRequest struct {
	DeviceID uint               `json:"device_id"`
	Type     models.SyncType    `json:"sync_type"`
	Filter   PunchFilter        `json:"-"`
	Command  models.CommandKind `json:"command,omitempty"`
}

// ImportResult 同步结果计数
type ImportResult struct {
	SyncLogID uint              `json:"sync_log_id"`
	RunID     string            `json:"run_id"`
	Status    models.SyncStatus `json:"status"`
	Found     int               `json:"found"`
	Synced    int               `json:"synced"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Info      *zk.Info          `json:"info,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func (r *ImportResult) add(o ImportResult) {
	r.Found += o.Found
	r.Synced += o.Synced
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	if o.Info != nil {
		r.Info = o.Info
	}
}

// SyncLogFilter 同步记录查询条件
type SyncLogFilter struct {
	models.PaginationQuery
	DeviceID uint   `form:"device_id"`
	Status   string `form:"status"`
}

// SyncDays 把天数换算成日期过滤：0 为今天，N 为最近 N 天，负数为全部
func SyncDays(days int, now time.Time) PunchFilter {
	if days < 0 {
		return PunchFilter{}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today
	if days > 1 {
		from = today.AddDate(0, 0, -(days - 1))
	}
	return PunchFilter{From: from, To: today}
}

// InterfacePullSyncService TCP 拉取同步
type InterfacePullSyncService interface {
	Start(ctx context.Context, req SyncRequest) (*models.SyncLog, error)
	Run(ctx context.Context, log *models.SyncLog, req SyncRequest) (ImportResult, error)
	ImportUsers(ctx context.Context, deviceID uint) (ImportResult, error)
	ImportAttendance(ctx context.Context, deviceID uint, filter PunchFilter) (ImportResult, error)
	ExecuteCommand(ctx context.Context, deviceID uint, kind models.CommandKind) (ImportResult, error)
	SyncAll(ctx context.Context, deviceID uint, filter PunchFilter) (ImportResult, error)
	GetSyncLog(ctx context.Context, id uint) (*models.SyncLog, error)
	ListSyncLogs(ctx context.Context, filter SyncLogFilter) ([]models.SyncLog, int64, error)
}

// PullSyncService 连接旧款考勤机拉取用户和打卡
type PullSyncService struct {
	DB        *gorm.DB
	Config    *config.Config
	Clock     clock.Clock
	Dialer    zk.Dialer
	Registry  InterfaceRegistryService
	Ledger    InterfaceLedgerService
	Directory InterfaceDirectoryService
	Notifier  InterfaceNotifierService
}

// NewPullSyncService 创建拉取同步服务
func NewPullSyncService(db *gorm.DB, cfg *config.Config, clk clock.Clock, dialer zk.Dialer, registry InterfaceRegistryService,
	ledger InterfaceLedgerService, directory InterfaceDirectoryService, notifier InterfaceNotifierService) InterfacePullSyncService {
	return &PullSyncService{
		DB:        db,
		Config:    cfg,
		Clock:     clk,
		Dialer:    dialer,
		Registry:  registry,
		Ledger:    ledger,
		Directory: directory,
		Notifier:  notifier,
	}
}

func isPullCommand(kind models.CommandKind) bool {
	for _, k := range PullCommands {
		if k == kind {
			return true
		}
	}
	return false
}

// 1 Start 校验设备并写入 pending 状态的同步记录
func (s *PullSyncService) Start(ctx context.Context, req SyncRequest) (*models.SyncLog, error) {
	device, err := s.Registry.GetByID(req.DeviceID)
	if err != nil {
		return nil, err
	}
	if !device.SupportsPull() {
		return nil, ErrDeviceNoPull
	}
	if req.Type == models.SyncCommand && !isPullCommand(req.Command) {
		return nil, ErrCommandUnsupported
	}
	log := &models.SyncLog{
		RunID:    uuid.NewString(),
		DeviceID: device.ID,
		SyncType: req.Type,
		Status:   models.SyncPending,
	}
	if err := s.DB.WithContext(ctx).Create(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

func (s *PullSyncService) target(device *models.Device) zk.Target {
	timeout := s.Config.PullTimeout
	if device.TCPTimeoutSeconds > 0 {
		timeout = time.Duration(device.TCPTimeoutSeconds) * time.Second
	}
	return zk.Target{
		Address:  device.IPAddress,
		Port:     device.Port,
		CommKey:  device.CommKey,
		Timeout:  timeout,
		Location: device.Location(),
	}
}

// 2 Run 执行同步并更新同步记录。连接失败时标记设备离线，不重试
func (s *PullSyncService) Run(ctx context.Context, log *models.SyncLog, req SyncRequest) (ImportResult, error) {
	result := ImportResult{SyncLogID: log.ID, RunID: log.RunID, Status: models.SyncRunning}
	device, err := s.Registry.GetByID(req.DeviceID)
	if err != nil {
		return s.finish(ctx, log, result, err)
	}

	started := s.Clock.Now().UTC()
	log.Status = models.SyncRunning
	log.StartedAt = &started
	if err := s.DB.WithContext(ctx).Save(log).Error; err != nil {
		return result, err
	}

	Logger.Info("[SYNC] %s 开始 %s 同步 (%s)", device.SerialNumber, req.Type, log.RunID)
	var info *zk.Info
	err = zk.WithSession(ctx, s.Dialer, s.target(device), func(sess zk.Session) error {
		switch req.Type {
		case models.SyncUsers:
			r, err := s.importUsers(ctx, device, sess)
			result.add(r)
			return err
		case models.SyncAttendance:
			r, err := s.importAttendance(ctx, device, sess, req.Filter)
			result.add(r)
			return err
		case models.SyncCommand:
			r, err := s.execute(ctx, sess, req.Command)
			result.add(r)
			return err
		case models.SyncAll:
			ur, err := s.importUsers(ctx, device, sess)
			result.add(ur)
			if err != nil {
				return err
			}
			ar, err := s.importAttendance(ctx, device, sess, req.Filter)
			result.add(ar)
			return err
		default:
			return fmt.Errorf("unknown sync type %q", req.Type)
		}
	})
	info = result.Info

	if err != nil {
		if merr := s.Registry.MarkOffline(device.ID); merr != nil {
			Logger.Warning("[SYNC] %s 标记离线失败: %v", device.SerialNumber, merr)
		}
		return s.finish(ctx, log, result, err)
	}

	obs := DeviceObservation{}
	if info != nil {
		obs.FirmwareVersion = info.FirmwareVersion
		obs.Platform = info.Platform
		obs.MACAddress = info.MACAddress
		obs.UserCount = info.Sizes.Users
		obs.FingerprintCount = info.Sizes.Fingerprints
		obs.TransactionCount = info.Sizes.Records
		obs.FaceCount = info.Sizes.Faces
	}
	if _, rerr := s.Registry.RegisterOrUpdate(device.SerialNumber, obs); rerr != nil {
		Logger.Warning("[SYNC] %s 更新设备状态失败: %v", device.SerialNumber, rerr)
	}
	return s.finish(ctx, log, result, nil)
}

func (s *PullSyncService) finish(ctx context.Context, log *models.SyncLog, result ImportResult, runErr error) (ImportResult, error) {
	done := s.Clock.Now().UTC()
	log.CompletedAt = &done
	log.RecordsFound = result.Found
	log.RecordsSynced = result.Synced
	log.RecordsSkipped = result.Skipped
	log.RecordsFailed = result.Failed
	if runErr != nil {
		log.Status = models.SyncFailed
		log.ErrorMessage = runErr.Error()
		result.Error = runErr.Error()
		Logger.Error("[SYNC] 同步 %s 失败: %v", log.RunID, runErr)
	} else {
		log.Status = models.SyncCompleted
		Logger.Info("[SYNC] 同步 %s 完成: 发现 %d, 新增 %d, 跳过 %d, 失败 %d",
			log.RunID, result.Found, result.Synced, result.Skipped, result.Failed)
	}
	result.Status = log.Status

	if err := s.DB.WithContext(ctx).Save(log).Error; err != nil {
		Logger.Error("[SYNC] 写入同步记录失败: %v", err)
	}
	if s.Notifier != nil {
		s.Notifier.Publish(EventSyncFinished, map[string]interface{}{
			"sync_log_id": log.ID,
			"run_id":      log.RunID,
			"device_id":   log.DeviceID,
			"status":      log.Status,
			"synced":      result.Synced,
			"failed":      result.Failed,
		})
	}
	return result, runErr
}

func (s *PullSyncService) importUsers(ctx context.Context, device *models.Device, sess zk.Session) (ImportResult, error) {
	var r ImportResult
	users, err := sess.Users(ctx)
	if err != nil {
		return r, err
	}
	r.Found = len(users)
	for _, u := range users {
		card := ""
		if u.Card != 0 {
			card = strconv.FormatUint(uint64(u.Card), 10)
		}
		created, err := s.Directory.ImportUser(ctx, &models.DeviceUser{
			DeviceID:   device.ID,
			SubjectID:  u.UserID,
			UID:        u.UID,
			Name:       u.Name,
			Privilege:  u.Privilege,
			CardNumber: card,
			Password:   u.Password,
			GroupID:    u.GroupID,
		})
		switch {
		case err != nil:
			r.Failed++
			Logger.Warning("[SYNC] %s 导入用户 %s 失败: %v", device.SerialNumber, u.UserID, err)
		case created:
			r.Synced++
		default:
			r.Skipped++
		}
	}
	return r, nil
}

func (s *PullSyncService) importAttendance(ctx context.Context, device *models.Device, sess zk.Session, filter PunchFilter) (ImportResult, error) {
	var r ImportResult
	records, err := sess.Attendance(ctx)
	if err != nil {
		return r, err
	}
	for _, a := range records {
		if !filter.Match(a.UserID, a.Timestamp) {
			continue
		}
		r.Found++
		inserted, err := s.Ledger.RecordPunch(ctx, PunchInput{
			DeviceID:   device.ID,
			SubjectID:  a.UserID,
			Time:       a.Timestamp,
			PunchType:  models.PunchType(a.Punch),
			VerifyType: models.VerifyType(a.Verify),
			WorkCode:   strconv.Itoa(a.WorkCode),
			Source:     models.SourcePull,
		})
		switch {
		case err != nil:
			r.Failed++
			Logger.Warning("[SYNC] %s 写入打卡 %s 失败: %v", device.SerialNumber, a.UserID, err)
		case inserted:
			r.Synced++
		default:
			r.Skipped++
		}
	}
	return r, nil
}

func (s *PullSyncService) execute(ctx context.Context, sess zk.Session, kind models.CommandKind) (ImportResult, error) {
	r := ImportResult{Found: 1}
	var err error
	switch kind {
	case models.CommandReboot:
		err = sess.Restart(ctx)
	case models.CommandSyncTime:
		err = sess.SetTime(ctx, s.Clock.Now())
	case models.CommandClearLog:
		err = sess.ClearAttendance(ctx)
	case models.CommandGetDeviceInfo:
		var info zk.Info
		info, err = sess.Info(ctx)
		if err == nil {
			r.Info = &info
		}
	default:
		return r, ErrCommandUnsupported
	}
	if err != nil {
		r.Failed = 1
		return r, err
	}
	r.Synced = 1
	return r, nil
}

func (s *PullSyncService) startAndRun(ctx context.Context, req SyncRequest) (ImportResult, error) {
	log, err := s.Start(ctx, req)
	if err != nil {
		return ImportResult{}, err
	}
	return s.Run(ctx, log, req)
}

// 3 ImportUsers 导入设备用户，已存在的不覆盖
func (s *PullSyncService) ImportUsers(ctx context.Context, deviceID uint) (ImportResult, error) {
	return s.startAndRun(ctx, SyncRequest{DeviceID: deviceID, Type: models.SyncUsers})
}

// 4 ImportAttendance 导入打卡，过滤在取回后进行
func (s *PullSyncService) ImportAttendance(ctx context.Context, deviceID uint, filter PunchFilter) (ImportResult, error) {
	return s.startAndRun(ctx, SyncRequest{DeviceID: deviceID, Type: models.SyncAttendance, Filter: filter})
}

// 5 ExecuteCommand 通过 TCP 直接执行命令
func (s *PullSyncService) ExecuteCommand(ctx context.Context, deviceID uint, kind models.CommandKind) (ImportResult, error) {
	return s.startAndRun(ctx, SyncRequest{DeviceID: deviceID, Type: models.SyncCommand, Command: kind})
}

// 6 SyncAll 同一连接内先导入用户再导入打卡
func (s *PullSyncService) SyncAll(ctx context.Context, deviceID uint, filter PunchFilter) (ImportResult, error) {
	return s.startAndRun(ctx, SyncRequest{DeviceID: deviceID, Type: models.SyncAll, Filter: filter})
}

// 7 GetSyncLog 根据ID获取同步记录
func (s *PullSyncService) GetSyncLog(ctx context.Context, id uint) (*models.SyncLog, error) {
	var log models.SyncLog
	if err := s.DB.WithContext(ctx).First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSyncLogNotFound
		}
		return nil, err
	}
	return &log, nil
}

// 8 ListSyncLogs 分页查询同步记录
func (s *PullSyncService) ListSyncLogs(ctx context.Context, filter SyncLogFilter) ([]models.SyncLog, int64, error) {
	filter.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.SyncLog{})
	if filter.DeviceID != 0 {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "id desc"
	if !filter.Desc {
		order = "id asc"
	}
	var logs []models.SyncLog
	err := query.Order(order).Limit(filter.PageSize).Offset(filter.Offset()).Find(&logs).Error
	return logs, total, err
}
