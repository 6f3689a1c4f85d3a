package services

import (
	"context"
	"testing"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

func TestGenerateOvertime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedWeek(t, f)

	// E1 周二加班到 19:40
	d, _ := f.registry.GetBySerial("ENGINE1")
	if _, err := f.ledger.RecordPunch(ctx, PunchInput{DeviceID: d.ID, SubjectID: "E1", Time: at(tuesday, 19, 40)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attendance.Generate(ctx, weekRequest()); err != nil {
		t.Fatal(err)
	}

	res, err := f.overtime.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 1 || res.Updated != 0 || res.Errors != 0 {
		t.Fatalf("result = %+v", res)
	}

	records, total, err := f.overtime.List(ctx, OvertimeFilter{SubjectID: "E1"})
	if err != nil || total != 1 {
		t.Fatalf("records = %d, %v", total, err)
	}
	ot := records[0]
	if ot.Type != models.OvertimeRegular || ot.Hours != 1.5 || ot.Multiplier != 1.5 {
		t.Errorf("overtime = %+v", ot)
	}
	if ot.HourlyRate != 125 || ot.TotalAmount != 281.25 {
		t.Errorf("rate %.2f amount %.2f", ot.HourlyRate, ot.TotalAmount)
	}
	if ot.Status != models.OvertimePending || ot.AttendanceID == 0 {
		t.Errorf("overtime = %+v", ot)
	}
	if ot.StartTime == nil || !ot.StartTime.Equal(at(tuesday, 19, 40)) {
		t.Errorf("start = %v", ot.StartTime)
	}

	again, err := f.overtime.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if again.Generated != 0 || again.Updated != 1 {
		t.Errorf("rerun = %+v", again)
	}
}

func TestGenerateOvertimeWithoutAttendance(t *testing.T) {
	f := newFixture(t)
	res, err := f.overtime.Generate(context.Background(), weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 0 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
}

// seedOvertime 生成 E1 周二 1.5 小时加班
func seedOvertime(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	seedWeek(t, f)
	d, _ := f.registry.GetBySerial("ENGINE1")
	if _, err := f.ledger.RecordPunch(ctx, PunchInput{DeviceID: d.ID, SubjectID: "E1", Time: at(tuesday, 19, 40)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attendance.Generate(ctx, weekRequest()); err != nil {
		t.Fatal(err)
	}
	if res, err := f.overtime.Generate(ctx, weekRequest()); err != nil || res.Generated != 1 {
		t.Fatalf("overtime = %+v, %v", res, err)
	}
}

// 期望工时提高后考勤不再有加班，对应的 pending 记录被删除
func raiseExpectedHours(t *testing.T, f *fixture) {
	t.Helper()
	if err := f.db.Model(&models.Employee{}).Where("subject_id = ?", "E1").Update("expected_hours", 12).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := f.attendance.Generate(context.Background(), weekRequest()); err != nil {
		t.Fatal(err)
	}
	var a models.AttendanceRecord
	f.db.Where("subject_id = ? AND status = ?", "E1", models.StatusPresent).First(&a)
	if a.OvertimeHours != 0 {
		t.Fatalf("attendance overtime = %.2f, want 0", a.OvertimeHours)
	}
}

func TestGenerateOvertimeRemovesStaleRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedOvertime(t, f)
	raiseExpectedHours(t, f)

	res, err := f.overtime.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Removed != 1 || res.Generated != 0 || res.Updated != 0 {
		t.Errorf("result = %+v", res)
	}
	if _, total, _ := f.overtime.List(ctx, OvertimeFilter{SubjectID: "E1"}); total != 0 {
		t.Errorf("overtime records = %d, want 0", total)
	}
	again, _ := f.overtime.Generate(ctx, weekRequest())
	if again.Removed != 0 {
		t.Errorf("rerun removed %d", again.Removed)
	}
}

func TestGenerateOvertimeKeepsApprovedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedOvertime(t, f)
	if err := f.db.Model(&models.OvertimeRecord{}).Where("subject_id = ?", "E1").Update("status", models.OvertimeApproved).Error; err != nil {
		t.Fatal(err)
	}

	// 审批后重跑不改写状态
	if _, err := f.overtime.Generate(ctx, weekRequest()); err != nil {
		t.Fatal(err)
	}
	raiseExpectedHours(t, f)
	res, err := f.overtime.Generate(ctx, weekRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Removed != 0 {
		t.Errorf("approved record removed: %+v", res)
	}
	records, total, _ := f.overtime.List(ctx, OvertimeFilter{SubjectID: "E1"})
	if total != 1 || records[0].Status != models.OvertimeApproved || records[0].Hours != 1.5 {
		t.Errorf("records = %+v", records)
	}
}
