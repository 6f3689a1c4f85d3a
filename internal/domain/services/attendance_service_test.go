package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

// seedWeek 准备周二到周五的参考数据：
// E1 正常上班，E2 周二排班休息、周四请假未批，E3 默认班次不存在
func seedWeek(t *testing.T, f *fixture) {
	t.Helper()
	rows := []interface{}{
		&models.Shift{Code: "GEN", Name: "General", StartTime: "09:00", EndTime: "18:00", BreakMinutes: 60},
		&models.Employee{SubjectID: "E1", Scope: "default", Name: "Rahim", IsActive: true, DefaultShiftCode: strPtr("GEN"), ExpectedHours: 8, BaseSalary: 26000},
		&models.Employee{SubjectID: "E2", Scope: "default", Name: "Karim", IsActive: true, DefaultShiftCode: strPtr("GEN"), ExpectedHours: 8},
		&models.Employee{SubjectID: "E3", Scope: "default", Name: "Ghost", IsActive: true, DefaultShiftCode: strPtr("NOPE"), ExpectedHours: 8},
		&models.Employee{SubjectID: "X1", Scope: "branch-2", Name: "Elsewhere", IsActive: true, DefaultShiftCode: strPtr("GEN"), ExpectedHours: 8},
		&models.Holiday{Date: models.CivilDate(tuesday.AddDate(0, 0, 1)), Name: "Public holiday"},
		&models.LeaveGrant{SubjectID: "E1", StartDate: tuesday.AddDate(0, 0, 2), EndDate: tuesday.AddDate(0, 0, 2), Status: models.LeaveApproved},
		&models.LeaveGrant{SubjectID: "E2", StartDate: tuesday.AddDate(0, 0, 2), EndDate: tuesday.AddDate(0, 0, 2), Status: models.LeavePending},
		&models.RosterDay{SubjectID: "E2", Date: models.CivilDate(tuesday), IsOff: true},
	}
	for _, row := range rows {
		if err := f.db.Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}

	d := f.device(t, "ENGINE1", models.ConnectionPush)
	for _, p := range []PunchInput{
		{DeviceID: d.ID, SubjectID: "E1", Time: at(tuesday, 9, 10)},
		{DeviceID: d.ID, SubjectID: "E1", Time: at(tuesday, 12, 30)},
		{DeviceID: d.ID, SubjectID: "E1", Time: at(tuesday, 18, 5)},
		{DeviceID: d.ID, SubjectID: "E2", Time: at(tuesday, 9, 0)},
	} {
		if _, err := f.ledger.RecordPunch(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
}

func weekRequest() GenerateRequest {
	return GenerateRequest{From: tuesday, To: tuesday.AddDate(0, 0, 3)}
}

func TestGenerateAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedWeek(t, f)

	res, err := f.attendance.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 8 || res.Updated != 0 || res.Errors != 4 {
		t.Fatalf("result = %+v", res)
	}
	if res.ConfigName != DefaultConfigName || res.RunID == "" {
		t.Errorf("result = %+v", res)
	}

	want := map[string][]models.AttendanceStatus{
		"E1": {models.StatusPresent, models.StatusHoliday, models.StatusLeave, models.StatusWeekend},
		"E2": {models.StatusWeekend, models.StatusHoliday, models.StatusAbsent, models.StatusWeekend},
	}
	for subject, statuses := range want {
		records, total, err := f.attendance.List(ctx, AttendanceFilter{SubjectID: subject})
		if err != nil {
			t.Fatal(err)
		}
		if total != 4 {
			t.Fatalf("%s: %d records", subject, total)
		}
		for i, rec := range records {
			if rec.Status != statuses[i] {
				t.Errorf("%s day %d: status %s, want %s", subject, i, rec.Status, statuses[i])
			}
		}
	}

	first, _, _ := f.attendance.List(ctx, AttendanceFilter{SubjectID: "E1", From: tuesday, To: tuesday})
	if len(first) != 1 {
		t.Fatalf("records on tuesday = %d", len(first))
	}
	rec := first[0]
	if rec.WorkHours != 7.92 || rec.LateMinutes != 0 || rec.OvertimeHours != 0 {
		t.Errorf("tuesday = %+v", rec)
	}
	if rec.CheckIn == nil || !rec.CheckIn.Equal(at(tuesday, 9, 10)) || rec.CheckOut == nil || !rec.CheckOut.Equal(at(tuesday, 18, 5)) {
		t.Errorf("check in/out = %v / %v", rec.CheckIn, rec.CheckOut)
	}
	if rec.ShiftCode == nil || *rec.ShiftCode != "GEN" {
		t.Errorf("shift = %v", rec.ShiftCode)
	}
	if rec.Remarks != "Generated using config: default" {
		t.Errorf("remarks = %q", rec.Remarks)
	}

	// 其他 scope 的人员不参与
	if _, total, _ := f.attendance.List(ctx, AttendanceFilter{SubjectID: "X1"}); total != 0 {
		t.Errorf("other scope generated %d records", total)
	}
	if n := f.notifier.count(EventBatchFinished); n != 1 {
		t.Errorf("batch_finished events = %d", n)
	}
}

func TestGenerateAttendanceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedWeek(t, f)

	if _, err := f.attendance.Generate(ctx, weekRequest()); err != nil {
		t.Fatal(err)
	}
	res, err := f.attendance.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 0 || res.Updated != 8 {
		t.Fatalf("rerun = %+v", res)
	}
	if _, total, _ := f.attendance.List(ctx, AttendanceFilter{}); total != 8 {
		t.Errorf("total records = %d", total)
	}
}

func TestGenerateAttendanceRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	svc := f.attendance.(*AttendanceService)
	release, err := svc.Lock.Acquire(context.Background(), "default")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if _, err := f.attendance.Generate(context.Background(), weekRequest()); !errors.Is(err, ErrBatchInProgress) {
		t.Errorf("err = %v", err)
	}
	// 其他 scope 不受影响
	if _, err := f.attendance.Generate(context.Background(), GenerateRequest{Scope: "branch-2", From: tuesday, To: tuesday}); err != nil {
		t.Errorf("other scope: %v", err)
	}
}

func TestGenerateAttendanceInvalidRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.attendance.Generate(context.Background(), GenerateRequest{From: tuesday, To: tuesday.Add(-48 * time.Hour)})
	if !errors.Is(err, ErrDateRangeInvalid) {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateAttendanceSkipsInactiveEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedWeek(t, f)
	if err := f.db.Model(&models.Employee{}).Where("subject_id = ?", "E3").Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}
	res, err := f.attendance.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors != 0 || res.Generated != 8 {
		t.Errorf("result = %+v", res)
	}
}

func TestInactiveEmployeeStaysInactiveOnCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedWeek(t, f)
	// 未知班次的员工如果被当作在职，会产生错误
	if err := f.db.Create(&models.Employee{SubjectID: "E4", Scope: "default", DefaultShiftCode: strPtr("NOPE"), ExpectedHours: 8}).Error; err != nil {
		t.Fatal(err)
	}
	var e models.Employee
	f.db.Where("subject_id = ?", "E4").First(&e)
	if e.IsActive {
		t.Fatal("employee created with IsActive=false was stored active")
	}
	res, err := f.attendance.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 8 || res.Errors != 4 {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerateAttendanceUsesActiveConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedWeek(t, f)

	cfg, _, _, _ := f.ruleConfig.ActiveFor(ctx, "")
	cfg.GraceMinutes = 0
	cfg.WeekendDays = []int{3} // Thursday
	row, err := f.ruleConfig.Create(ctx, "", "strict", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ruleConfig.Activate(ctx, row.ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.attendance.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.ConfigName != "strict" {
		t.Errorf("config = %q", res.ConfigName)
	}
	records, _, _ := f.attendance.List(ctx, AttendanceFilter{SubjectID: "E1"})
	if records[0].LateMinutes != 10 {
		t.Errorf("late minutes = %d", records[0].LateMinutes)
	}
	if records[2].Status != models.StatusWeekend || records[3].Status != models.StatusAbsent {
		t.Errorf("thursday %s, friday %s", records[2].Status, records[3].Status)
	}
}
