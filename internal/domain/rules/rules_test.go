package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

var dayShift = &Shift{
	Code:         "GEN",
	Start:        9 * time.Hour,
	End:          18 * time.Hour,
	BreakMinutes: 60,
	GraceMinutes: 5,
}

// 2024-03-05 is a Tuesday
var tuesday = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return tuesday.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func TestEvaluatePresentDay(t *testing.T) {
	c := DefaultConfig()
	res := c.Evaluate(DayInput{
		Date:          tuesday,
		Punches:       []time.Time{at(18, 5), at(9, 10), at(13, 0)},
		DefaultShift:  dayShift,
		ExpectedHours: 8,
	})
	if res.Status != models.StatusPresent {
		t.Fatalf("status = %s", res.Status)
	}
	if !res.CheckIn.Equal(at(9, 10)) || !res.CheckOut.Equal(at(18, 5)) {
		t.Errorf("in/out = %v/%v", res.CheckIn, res.CheckOut)
	}
	// 8h55m 减 60 分钟休息
	if res.WorkHours != 7.92 {
		t.Errorf("work hours = %v, want 7.92", res.WorkHours)
	}
	if res.LateMinutes != 0 || res.EarlyOutMinutes != 0 || res.OvertimeHours != 0 {
		t.Errorf("late=%d early=%d ot=%v", res.LateMinutes, res.EarlyOutMinutes, res.OvertimeHours)
	}
}

func TestGraceBoundary(t *testing.T) {
	c := DefaultConfig()
	cases := []struct {
		in   time.Time
		late int
	}{
		{at(9, 15), 0},
		{at(9, 16), 1},
		{at(9, 45), 30},
	}
	for _, tc := range cases {
		res := c.Evaluate(DayInput{Date: tuesday, Punches: []time.Time{tc.in, at(18, 0)}, DefaultShift: dayShift, ExpectedHours: 8})
		if res.LateMinutes != tc.late {
			t.Errorf("check-in %s: late = %d, want %d", tc.in.Format("15:04"), res.LateMinutes, tc.late)
		}
	}

	c.UseShiftGraceTime = true
	res := c.Evaluate(DayInput{Date: tuesday, Punches: []time.Time{at(9, 10), at(18, 0)}, DefaultShift: dayShift})
	if res.LateMinutes != 5 {
		t.Errorf("shift grace: late = %d, want 5", res.LateMinutes)
	}
}

func TestEarlyOut(t *testing.T) {
	res := DefaultConfig().Evaluate(DayInput{Date: tuesday, Punches: []time.Time{at(9, 0), at(17, 0)}, DefaultShift: dayShift})
	// 阈值 17:30
	if res.EarlyOutMinutes != 30 {
		t.Errorf("early out = %d, want 30", res.EarlyOutMinutes)
	}
}

func TestStatusPrecedence(t *testing.T) {
	c := DefaultConfig()
	off := DayInput{Date: tuesday, Roster: &Roster{Off: true}, Holiday: true, Leave: true, Punches: []time.Time{at(9, 0), at(18, 0)}}
	if got := c.Evaluate(off).Status; got != models.StatusWeekend {
		t.Errorf("roster off + holiday = %s, want weekend", got)
	}

	friday := tuesday.AddDate(0, 0, 3)
	if got := c.Evaluate(DayInput{Date: friday, Holiday: true}).Status; got != models.StatusWeekend {
		t.Errorf("friday = %s, want weekend", got)
	}
	if got := c.Evaluate(DayInput{Date: tuesday, Holiday: true, Leave: true}).Status; got != models.StatusHoliday {
		t.Errorf("holiday + leave = %s", got)
	}
	if got := c.Evaluate(DayInput{Date: tuesday, Leave: true}).Status; got != models.StatusLeave {
		t.Errorf("leave = %s", got)
	}
	if got := c.Evaluate(DayInput{Date: tuesday}).Status; got != models.StatusAbsent {
		t.Errorf("no punches = %s", got)
	}

	single := DayInput{Date: tuesday, Punches: []time.Time{at(9, 0)}, DefaultShift: dayShift}
	if got := c.Evaluate(single).Status; got != models.StatusPresent {
		t.Errorf("single punch = %s, want present", got)
	}
	c.RequireBothInAndOut = true
	if got := c.Evaluate(single).Status; got != models.StatusAbsent {
		t.Errorf("single punch with require both = %s", got)
	}

	c = DefaultConfig()
	c.EnableMinimumWorkingHoursRule = true
	short := DayInput{Date: tuesday, Punches: []time.Time{at(9, 0), at(12, 0)}, DefaultShift: dayShift}
	if got := c.Evaluate(short).Status; got != models.StatusAbsent {
		t.Errorf("2h worked with minimum rule = %s", got)
	}
}

func TestRosterOverridesDefaultShift(t *testing.T) {
	night := &Shift{Code: "NIGHT", Start: 22 * time.Hour, End: 6 * time.Hour, BreakMinutes: 30, Night: true}
	res := DefaultConfig().Evaluate(DayInput{
		Date:         tuesday,
		Punches:      []time.Time{at(22, 20), at(23, 50)},
		DefaultShift: dayShift,
		Roster:       &Roster{Shift: night},
	})
	if res.Shift != night || !res.NightShift {
		t.Fatalf("shift = %+v", res.Shift)
	}
	if res.LateMinutes != 5 {
		t.Errorf("late = %d, want 5", res.LateMinutes)
	}
	if night.Span() != 8*time.Hour {
		t.Errorf("night span = %v", night.Span())
	}
}

func TestOvertimeThreshold(t *testing.T) {
	c := DefaultConfig()
	// 9:00-19:30, 扣除1小时休息 = 9.5h, 超出 1.5h
	res := c.Evaluate(DayInput{Date: tuesday, Punches: []time.Time{at(9, 0), at(19, 30)}, DefaultShift: dayShift, ExpectedHours: 8})
	if res.OvertimeHours != 1.5 {
		t.Errorf("overtime = %v, want 1.5", res.OvertimeHours)
	}
	// 超出 30 分钟低于 60 分钟门槛
	res = c.Evaluate(DayInput{Date: tuesday, Punches: []time.Time{at(9, 0), at(18, 30)}, DefaultShift: dayShift, ExpectedHours: 8})
	if res.OvertimeHours != 0 {
		t.Errorf("overtime = %v, want 0", res.OvertimeHours)
	}
}

func TestHalfDayAndMaximumFlags(t *testing.T) {
	c := DefaultConfig()
	c.EnableHalfDayRule = true
	c.EnableMaximumWorkingHoursRule = true
	c.MaximumAllowableWorkingHours = 10

	res := c.Evaluate(DayInput{Date: tuesday, Punches: []time.Time{at(9, 0), at(14, 0)}, DefaultShift: dayShift})
	if res.Status != models.StatusHalfDay {
		t.Errorf("4h worked = %s, want half_day", res.Status)
	}

	res = c.Evaluate(DayInput{Date: tuesday, Punches: []time.Time{at(6, 0), at(20, 0)}, DefaultShift: dayShift, ExpectedHours: 8})
	if !strings.Contains(res.Remarks(), "exceeds maximum") {
		t.Errorf("remarks = %q", res.Remarks())
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	in := DayInput{Date: tuesday, Punches: []time.Time{at(9, 3), at(18, 44)}, DefaultShift: dayShift, ExpectedHours: 8}
	c := DefaultConfig()
	a, b := c.Evaluate(in), c.Evaluate(in)
	if a.Status != b.Status || a.WorkHours != b.WorkHours || a.OvertimeHours != b.OvertimeHours || !a.CheckIn.Equal(*b.CheckIn) {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
}

func TestClassifyOvertime(t *testing.T) {
	cases := []struct {
		holiday, weekend, night bool
		want                    models.OvertimeType
		mult                    float64
	}{
		{true, true, true, models.OvertimeHoliday, 2.0},
		{false, true, true, models.OvertimeWeekend, 1.75},
		{false, false, true, models.OvertimeNight, 1.5},
		{false, false, false, models.OvertimeRegular, 1.5},
	}
	for _, tc := range cases {
		typ, mult := ClassifyOvertime(tc.holiday, tc.weekend, tc.night)
		if typ != tc.want || mult != tc.mult {
			t.Errorf("ClassifyOvertime(%v,%v,%v) = %s/%v", tc.holiday, tc.weekend, tc.night, typ, mult)
		}
	}
}

func TestResolveHourlyRate(t *testing.T) {
	if got := ResolveHourlyRate(0, 0, 26000, 8); got != 125.00 {
		t.Errorf("derived rate = %v, want 125", got)
	}
	if got := ResolveHourlyRate(90, 0, 26000, 8); got != 90 {
		t.Errorf("per hour rate = %v", got)
	}
	if got := ResolveHourlyRate(90, 200, 26000, 8); got != 200 {
		t.Errorf("overtime rate override = %v", got)
	}
	if got := ResolveHourlyRate(0, 0, 0, 8); got != 0 {
		t.Errorf("no data = %v", got)
	}
}

func TestModelRoundTripKeepsZeroValues(t *testing.T) {
	c := DefaultConfig()
	c.GraceMinutes = 0
	c.UseShiftBreakTime = false
	c.WeekendDays = []int{5, 6}
	back := FromModel(c.ToModel("default", "weekend-sat-sun"))
	if back.GraceMinutes != 0 || back.UseShiftBreakTime || len(back.WeekendDays) != 2 {
		t.Fatalf("round trip = %+v", back)
	}
	if !back.IsWeekend(tuesday.AddDate(0, 0, 5)) || back.IsWeekend(tuesday.AddDate(0, 0, 3)) {
		t.Error("weekend days not honoured")
	}
}

func TestLoadFile(t *testing.T) {
	f, err := LoadFile(strings.NewReader("name: strict\ngrace_minutes: 5\nrequire_both_in_and_out: true\nweekend_days: [5, 6]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "strict" || f.GraceMinutes != 5 || !f.RequireBothInAndOut {
		t.Errorf("file = %+v", f)
	}
	if f.DefaultBreakMinutes != 60 {
		t.Errorf("unset key lost default: %d", f.DefaultBreakMinutes)
	}
	if _, err := LoadFile(strings.NewReader("grace_minutes: 5\n")); err == nil {
		t.Error("file without name accepted")
	}
	if _, err := LoadFile(strings.NewReader("name: x\nweekend_days: [9]\n")); err == nil {
		t.Error("invalid weekend day accepted")
	}
}
