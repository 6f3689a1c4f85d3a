package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/rules"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// AttendanceFilter 考勤记录查询条件
type AttendanceFilter struct {
	models.PaginationQuery
	Scope     string    `form:"scope"`
	SubjectID string    `form:"subject_id"`
	Status    string    `form:"status"`
	From      time.Time `form:"from" time_format:"2006-01-02"`
	To        time.Time `form:"to" time_format:"2006-01-02"`
}

// InterfaceAttendanceService 考勤批处理
type InterfaceAttendanceService interface {
	Generate(ctx context.Context, req GenerateRequest) (BatchResult, error)
	List(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, int64, error)
}

// AttendanceService 从打卡流水生成每日考勤
type AttendanceService struct {
	DB       *gorm.DB
	Config   *config.Config
	Clock    clock.Clock
	Rules    InterfaceRuleConfigService
	Ledger   InterfaceLedgerService
	Notifier InterfaceNotifierService
	Lock     *BatchLock
}

// NewAttendanceService 创建考勤批处理服务
func NewAttendanceService(db *gorm.DB, cfg *config.Config, clk clock.Clock, ruleConfigs InterfaceRuleConfigService,
	ledger InterfaceLedgerService, notifier InterfaceNotifierService, redis InterfaceRedisService) InterfaceAttendanceService {
	return &AttendanceService{
		DB:       db,
		Config:   cfg,
		Clock:    clk,
		Rules:    ruleConfigs,
		Ledger:   ledger,
		Notifier: notifier,
		Lock:     NewBatchLock("attendance", redis, cfg.BatchLockTTL),
	}
}

// snapshot 批处理开始时读取的参考数据
type snapshot struct {
	employees []models.Employee
	shifts    map[string]*rules.Shift
	badShifts map[string]error
	holidays  map[string]bool
	leave     map[string]map[string]bool
	rosters   map[string]models.RosterDay
	punches   map[string][]time.Time
}

func rosterKey(subject string, day time.Time) string {
	return subject + "|" + dayKey(day)
}

func (s *AttendanceService) load(ctx context.Context, scope string, from, to time.Time, loc *time.Location) (*snapshot, error) {
	db := s.DB.WithContext(ctx)
	snap := &snapshot{
		shifts:    map[string]*rules.Shift{},
		badShifts: map[string]error{},
		holidays:  map[string]bool{},
		leave:     map[string]map[string]bool{},
		rosters:   map[string]models.RosterDay{},
		punches:   map[string][]time.Time{},
	}

	if err := db.Where("scope = ? AND is_active = ?", scope, true).Order("subject_id asc").Find(&snap.employees).Error; err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	if len(snap.employees) == 0 {
		return snap, nil
	}
	subjects := make([]string, 0, len(snap.employees))
	for _, e := range snap.employees {
		subjects = append(subjects, e.SubjectID)
	}

	var shifts []models.Shift
	if err := db.Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("load shifts: %w", err)
	}
	for i := range shifts {
		sh, err := rules.ShiftFromModel(&shifts[i])
		if err != nil {
			snap.badShifts[shifts[i].Code] = err
			continue
		}
		snap.shifts[sh.Code] = sh
	}

	fromDate, toDate := models.CivilDate(from), models.CivilDate(to)

	var holidays []models.Holiday
	if err := db.Where("(scope = ? OR scope = '') AND date >= ? AND date <= ?", scope, fromDate, toDate).Find(&holidays).Error; err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	for _, h := range holidays {
		snap.holidays[dayKey(h.Date)] = true
	}

	var grants []models.LeaveGrant
	if err := db.Where("subject_id IN ? AND status = ? AND start_date <= ? AND end_date >= ?",
		subjects, models.LeaveApproved, toDate, fromDate).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("load leave: %w", err)
	}
	for _, g := range grants {
		days := snap.leave[g.SubjectID]
		if days == nil {
			days = map[string]bool{}
			snap.leave[g.SubjectID] = days
		}
		for d := models.CivilDate(g.StartDate); !d.After(models.CivilDate(g.EndDate)); d = d.AddDate(0, 0, 1) {
			days[dayKey(d)] = true
		}
	}

	var rosters []models.RosterDay
	if err := db.Where("subject_id IN ? AND date >= ? AND date <= ?", subjects, fromDate, toDate).Find(&rosters).Error; err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	for _, r := range rosters {
		snap.rosters[rosterKey(r.SubjectID, r.Date)] = r
	}

	punches, err := s.Ledger.PunchesBetween(ctx, subjects, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load punches: %w", err)
	}
	for _, p := range punches {
		key := rosterKey(p.SubjectID, p.PunchTime.In(loc))
		snap.punches[key] = append(snap.punches[key], p.PunchTime)
	}
	return snap, nil
}

func (snap *snapshot) shift(code *string) (*rules.Shift, error) {
	if code == nil || *code == "" {
		return nil, nil
	}
	if sh, ok := snap.shifts[*code]; ok {
		return sh, nil
	}
	if err, ok := snap.badShifts[*code]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("unknown shift code %q", *code)
}

// dayInput 组装单人单日的规则输入
func (snap *snapshot) dayInput(e *models.Employee, day time.Time, loc *time.Location) (rules.DayInput, error) {
	in := rules.DayInput{
		Date:          day,
		Location:      loc,
		Punches:       snap.punches[rosterKey(e.SubjectID, day)],
		Holiday:       snap.holidays[dayKey(day)],
		Leave:         snap.leave[e.SubjectID][dayKey(day)],
		ExpectedHours: e.ExpectedHours,
	}
	sh, err := snap.shift(e.DefaultShiftCode)
	if err != nil {
		return in, err
	}
	in.DefaultShift = sh
	if r, ok := snap.rosters[rosterKey(e.SubjectID, day)]; ok {
		rs, err := snap.shift(r.ShiftCode)
		if err != nil {
			return in, err
		}
		in.Roster = &rules.Roster{Shift: rs, Off: r.IsOff}
	}
	return in, nil
}

// upsertRecord 按 (subject_id, date) 写入，返回是否为新建
func upsertRecord(db *gorm.DB, value interface{}, model interface{}, subjectID string, date time.Time, columns []string) (bool, error) {
	var count int64
	if err := db.Model(model).Where("subject_id = ? AND date = ?", subjectID, date).Count(&count).Error; err != nil {
		return false, err
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(value).Error
	return count == 0, err
}

var attendanceColumns = []string{
	"scope", "shift_code", "check_in", "check_out", "status", "work_hours", "overtime_hours",
	"late_minutes", "early_out_minutes", "is_night_shift", "remarks", "updated_at",
}

// 1 Generate 为 scope 生成日期区间内的考勤，同一 scope 同时只允许一个批处理
func (s *AttendanceService) Generate(ctx context.Context, req GenerateRequest) (BatchResult, error) {
	scope := req.Scope
	if scope == "" {
		scope = s.Config.DefaultScope
	}
	loc := s.Config.Location()
	result := BatchResult{RunID: uuid.NewString(), Scope: scope}

	from, to, err := resolveRange(req, s.Clock.Now(), loc, func() (*time.Time, error) {
		return s.Ledger.EarliestPunch(ctx, scope)
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

	snap, err := s.load(ctx, scope, from, to, loc)
	if err != nil {
		return result, err
	}
	Logger.Info("[ENGINE] %s 生成考勤 %s ~ %s, 人数 %d, 配置 %s",
		scope, dayKey(from), dayKey(to), len(snap.employees), name)

	remark := "Generated using config: " + name
	db := s.DB.WithContext(ctx)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for i := range snap.employees {
			e := &snap.employees[i]
			in, err := snap.dayInput(e, day, loc)
			if err != nil {
				result.fail(fmt.Sprintf("%s %s: %v", e.SubjectID, dayKey(day), err))
				Logger.Error("[ENGINE] %s %s: %v", e.SubjectID, dayKey(day), err)
				continue
			}
			res := cfg.Evaluate(in)

			rec := models.AttendanceRecord{
				SubjectID:       e.SubjectID,
				Date:            models.CivilDate(day),
				Scope:           scope,
				CheckIn:         utcPtr(res.CheckIn),
				CheckOut:        utcPtr(res.CheckOut),
				Status:          res.Status,
				WorkHours:       res.WorkHours,
				OvertimeHours:   res.OvertimeHours,
				LateMinutes:     res.LateMinutes,
				EarlyOutMinutes: res.EarlyOutMinutes,
				IsNightShift:    res.NightShift,
				Remarks:         remark,
			}
			if res.Shift != nil {
				code := res.Shift.Code
				rec.ShiftCode = &code
			}
			if flags := res.Remarks(); flags != "" {
				rec.Remarks += "; " + flags
			}

			created, err := upsertRecord(db, &rec, &models.AttendanceRecord{}, rec.SubjectID, rec.Date, attendanceColumns)
			switch {
			case err != nil:
				result.fail(fmt.Sprintf("%s %s: %v", e.SubjectID, dayKey(day), err))
				Logger.Error("[ENGINE] 写入考勤 %s %s 失败: %v", e.SubjectID, dayKey(day), err)
			case created:
				result.Generated++
			default:
				result.Updated++
			}
		}
	}

	Logger.Info("[ENGINE] %s: %s", scope, result.Message())
	if s.Notifier != nil {
		s.Notifier.Publish(EventBatchFinished, map[string]interface{}{
			"kind":      "attendance",
			"run_id":    result.RunID,
			"scope":     scope,
			"generated": result.Generated,
			"updated":   result.Updated,
			"errors":    result.Errors,
		})
	}
	return result, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// 2 List 分页查询考勤记录
func (s *AttendanceService) List(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, int64, error) {
	filter.Normalize()
	query := s.DB.WithContext(ctx).Model(&models.AttendanceRecord{})
	if filter.Scope != "" {
		query = query.Where("scope = ?", filter.Scope)
	}
	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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
	var records []models.AttendanceRecord
	err := query.Order(order).Limit(filter.PageSize).Offset(filter.Offset()).Find(&records).Error
	return records, total, err
}
