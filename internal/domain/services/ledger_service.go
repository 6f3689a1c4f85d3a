package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
)

// PunchInput 一条待入账的打卡
type PunchInput struct {
	DeviceID    uint
	SubjectID   string
	Time        time.Time
	PunchType   models.PunchType
	VerifyType  models.VerifyType
	WorkCode    string
	Source      models.PunchSource
	Temperature *float64
	MaskStatus  *bool
	Raw         string
}

// PunchFilter 打卡查询条件，零值字段不过滤
type PunchFilter struct {
	models.PaginationQuery
	DeviceID  uint      `form:"device_id"`
	SubjectID string    `form:"subject_id"`
	From      time.Time `form:"from" time_format:"2006-01-02"`
	To        time.Time `form:"to" time_format:"2006-01-02"`
}

// Match 客户端过滤，拉取同步时使用 (To 为包含的日期上界)
func (f PunchFilter) Match(subjectID string, t time.Time) bool {
	if f.SubjectID != "" && f.SubjectID != subjectID {
		return false
	}
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Before(f.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// InterfaceLedgerService 打卡流水，PunchRecord 的唯一写入方
type InterfaceLedgerService interface {
	RecordPunch(ctx context.Context, in PunchInput) (bool, error)
	ListPunches(ctx context.Context, filter PunchFilter) ([]models.PunchRecord, int64, error)
	PunchesBetween(ctx context.Context, subjectIDs []string, from, to time.Time) ([]models.PunchRecord, error)
	EarliestPunch(ctx context.Context, scope string) (*time.Time, error)
}

// LedgerService 打卡流水服务
type LedgerService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewLedgerService 创建打卡流水服务
func NewLedgerService(db *gorm.DB, cfg *config.Config) InterfaceLedgerService {
	return &LedgerService{
		DB:     db,
		Config: cfg,
	}
}

// 1 RecordPunch 写入打卡，(device, subject, time) 重复时返回 false 且不报错
func (s *LedgerService) RecordPunch(ctx context.Context, in PunchInput) (bool, error) {
	if in.DeviceID == 0 || in.SubjectID == "" || in.Time.IsZero() {
		return false, fmt.Errorf("punch requires device, subject and time")
	}
	if in.Source == "" {
		in.Source = models.SourcePush
	}
	rec := models.PunchRecord{
		DeviceID:    in.DeviceID,
		SubjectID:   in.SubjectID,
		PunchTime:   in.Time.UTC().Truncate(time.Second),
		PunchType:   in.PunchType,
		VerifyType:  in.VerifyType,
		WorkCode:    in.WorkCode,
		Source:      in.Source,
		Temperature: in.Temperature,
		MaskStatus:  in.MaskStatus,
		RawPayload:  in.Raw,
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// 2 ListPunches 分页查询打卡
func (s *LedgerService) ListPunches(ctx context.Context, filter PunchFilter) ([]models.PunchRecord, int64, error) {
	filter.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.PunchRecord{})
	if filter.DeviceID != 0 {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if !filter.From.IsZero() {
		query = query.Where("punch_time >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("punch_time < ?", filter.To.AddDate(0, 0, 1).UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "punch_time asc"
	if filter.Desc {
		order = "punch_time desc"
	}
	var punches []models.PunchRecord
	if err := query.Order(order).Limit(filter.PageSize).Offset(filter.Offset()).Find(&punches).Error; err != nil {
		return nil, 0, err
	}
	return punches, total, nil
}

// 3 PunchesBetween 批处理读取 [from, to) 内指定人员的打卡
func (s *LedgerService) PunchesBetween(ctx context.Context, subjectIDs []string, from, to time.Time) ([]models.PunchRecord, error) {
	var punches []models.PunchRecord
	if len(subjectIDs) == 0 {
		return punches, nil
	}
	err := s.DB.WithContext(ctx).
		Where("subject_id IN ? AND punch_time >= ? AND punch_time < ?", subjectIDs, from.UTC(), to.UTC()).
		Order("punch_time asc").
		Find(&punches).Error
	return punches, err
}

// 4 EarliestPunch 范围内最早的打卡时间，没有打卡时返回 nil
func (s *LedgerService) EarliestPunch(ctx context.Context, scope string) (*time.Time, error) {
	var punch models.PunchRecord
	query := s.DB.WithContext(ctx).Model(&models.PunchRecord{})
	if scope != "" {
		query = query.Where("subject_id IN (?)", s.DB.Model(&models.Employee{}).Select("subject_id").Where("scope = ?", scope))
	}
	err := query.Order("punch_time asc").First(&punch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &punch.PunchTime, nil
}
