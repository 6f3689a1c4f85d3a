package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/rules"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// OvertimeFilter 加班记录查询条件
type OvertimeFilter struct {
	models.PaginationQuery
	Scope     string    `form:"scope"`
	SubjectID string    `form:"subject_id"`
	Type      string    `form:"type"`
	From      time.Time `form:"from" time_format:"2006-01-02"`
	To        time.Time `form:"to" time_format:"2006-01-02"`
}

// InterfaceOvertimeService 加班批处理
type InterfaceOvertimeService interface {
	Generate(ctx context.Context, req GenerateRequest) (BatchResult, error)
	List(ctx context.Context, filter OvertimeFilter) ([]models.OvertimeRecord, int64, error)
}

// OvertimeService 从考勤记录生成加班记录
type OvertimeService struct {
	DB       *gorm.DB
	Config   *config.Config
	Clock    clock.Clock
	Rules    InterfaceRuleConfigService
	Notifier InterfaceNotifierService
	Lock     *BatchLock
}

// NewOvertimeService 创建加班批处理服务
func NewOvertimeService(db *gorm.DB, cfg *config.Config, clk clock.Clock, ruleConfigs InterfaceRuleConfigService,
	notifier InterfaceNotifierService, redis InterfaceRedisService) InterfaceOvertimeService {
	return &OvertimeService{
		DB:       db,
		Config:   cfg,
		Clock:    clk,
		Rules:    ruleConfigs,
		Notifier: notifier,
		Lock:     NewBatchLock("overtime", redis, cfg.BatchLockTTL),
	}
}

func (s *OvertimeService) earliestAttendance(ctx context.Context, scope string) (*time.Time, error) {
	var rec models.AttendanceRecord
	err := s.DB.WithContext(ctx).Where("scope = ?", scope).Order("date asc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// date 列为日历日期，按考勤时区还原
	d := time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(), 0, 0, 0, 0, s.Config.Location())
	return &d, nil
}

var overtimeColumns = []string{
	"scope", "attendance_id", "shift_code", "start_time", "type", "hours", "hourly_rate",
	"multiplier", "total_amount", "remarks", "updated_at",
}

// 1 Generate 为考勤中有加班的记录生成加班，重复执行结果相同
func (s *OvertimeService) Generate(ctx context.Context, req GenerateRequest) (BatchResult, error) {
	scope := req.Scope
	if scope == "" {
		scope = s.Config.DefaultScope
	}
	loc := s.Config.Location()
	result := BatchResult{RunID: uuid.NewString(), Scope: scope}

	from, to, err := resolveRange(req, s.Clock.Now(), loc, func() (*time.Time, error) {
		return s.earliestAttendance(ctx, scope)
	})
	if err != nil {
		return result, err
	}
	result.From, result.To = from, to

	release, err := s.Lock.Acquire(ctx, scope)
	if err != nil {
		return result, err
	}
	defer release()

	cfg, name, _, err := s.Rules.ActiveFor(ctx, scope)
	if err != nil {
		return result, err
	}
	result.ConfigName = name

	db := s.DB.WithContext(ctx)
	fromDate, toDate := models.CivilDate(from), models.CivilDate(to)

	var attendance []models.AttendanceRecord
	if err := db.Where("scope = ? AND date >= ? AND date <= ? AND overtime_hours > 0", scope, fromDate, toDate).
		Order("date asc, subject_id asc").Find(&attendance).Error; err != nil {
		return result, fmt.Errorf("load attendance: %w", err)
	}

	// 已有记录：非 pending 的由外部审批接管，不再改写
	var existing []models.OvertimeRecord
	if err := db.Where("scope = ? AND date >= ? AND date <= ?", scope, fromDate, toDate).Find(&existing).Error; err != nil {
		return result, fmt.Errorf("load overtime: %w", err)
	}
	existingByKey := make(map[string]models.OvertimeRecord, len(existing))
	for _, o := range existing {
		existingByKey[o.SubjectID+"|"+dayKey(o.Date)] = o
	}

	holidays := map[string]bool{}
	var hs []models.Holiday
	if err := db.Where("(scope = ? OR scope = '') AND date >= ? AND date <= ?", scope, fromDate, toDate).Find(&hs).Error; err != nil {
		return result, fmt.Errorf("load holidays: %w", err)
	}
	for _, h := range hs {
		holidays[dayKey(h.Date)] = true
	}

	employees := map[string]models.Employee{}
	if len(attendance) > 0 {
		subjects := make([]string, 0, len(attendance))
		for _, a := range attendance {
			subjects = append(subjects, a.SubjectID)
		}
		var es []models.Employee
		if err := db.Where("subject_id IN ?", subjects).Find(&es).Error; err != nil {
			return result, fmt.Errorf("load employees: %w", err)
		}
		for _, e := range es {
			employees[e.SubjectID] = e
		}
	}

	remark := "Generated from attendance using config: " + name
	derived := make(map[string]bool, len(attendance))
	for i := range attendance {
		a := &attendance[i]
		key := dayKey(a.Date)
		derived[a.SubjectID+"|"+key] = true
		if old, ok := existingByKey[a.SubjectID+"|"+key]; ok && old.Status != models.OvertimePending {
			continue
		}
		e, ok := employees[a.SubjectID]
		if !ok {
			result.fail(fmt.Sprintf("%s %s: employee not found", a.SubjectID, key))
			continue
		}

		isHoliday := holidays[key]
		isWeekend := cfg.IsWeekend(time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, time.UTC))
		otType, multiplier := rules.ClassifyOvertime(isHoliday, isWeekend, a.IsNightShift)
		rate := rules.ResolveHourlyRate(e.PerHourRate, e.OvertimeRate, e.BaseSalary, e.ExpectedHours)

		rec := models.OvertimeRecord{
			SubjectID:    a.SubjectID,
			Date:         a.Date,
			Scope:        scope,
			AttendanceID: a.ID,
			ShiftCode:    a.ShiftCode,
			StartTime:    a.CheckOut,
			Type:         otType,
			Hours:        a.OvertimeHours,
			HourlyRate:   rate,
			Multiplier:   multiplier,
			TotalAmount:  rules.Round2(a.OvertimeHours * rate * multiplier),
			Status:       models.OvertimePending,
			Remarks:      remark,
		}
		created, err := upsertRecord(db, &rec, &models.OvertimeRecord{}, rec.SubjectID, rec.Date, overtimeColumns)
		switch {
		case err != nil:
			result.fail(fmt.Sprintf("%s %s: %v", a.SubjectID, key, err))
			Logger.Error("[ENGINE] 写入加班 %s %s 失败: %v", a.SubjectID, key, err)
		case created:
			result.Generated++
		default:
			result.Updated++
		}
	}

	// 考勤已不再有加班的 pending 记录随之删除
	for key, o := range existingByKey {
		if derived[key] || o.Status != models.OvertimePending {
			continue
		}
		if err := db.Delete(&models.OvertimeRecord{}, o.ID).Error; err != nil {
			result.fail(fmt.Sprintf("%s %s: %v", o.SubjectID, dayKey(o.Date), err))
			continue
		}
		result.Removed++
	}

	Logger.Info("[ENGINE] %s 加班: %s", scope, result.Message())
	if s.Notifier != nil {
		s.Notifier.Publish(EventBatchFinished, map[string]interface{}{
			"kind":      "overtime",
			"run_id":    result.RunID,
			"scope":     scope,
			"generated": result.Generated,
			"updated":   result.Updated,
			"removed":   result.Removed,
			"errors":    result.Errors,
		})
	}
	return result, nil
}

// 2 List 分页查询加班记录
func (s *OvertimeService) List(ctx context.Context, filter OvertimeFilter) ([]models.OvertimeRecord, int64, error) {
	filter.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.OvertimeRecord{})
	if filter.Scope != "" {
		query = query.Where("scope = ?", filter.Scope)
	}
	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if !filter.From.IsZero() {
		query = query.Where("date >= ?", models.CivilDate(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where("date <= ?", models.CivilDate(filter.To))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "date asc, subject_id asc"
	if filter.Desc {
		order = "date desc, subject_id asc"
	}
	var records []models.OvertimeRecord
	err := query.Order(order).Limit(filter.PageSize).Offset(filter.Offset()).Find(&records).Error
	return records, total, err
}
