package rules

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

// Shift is a resolved shift with clock offsets from midnight.
type Shift struct {
	Code         string
	Start        time.Duration
	End          time.Duration
	BreakMinutes int
	GraceMinutes int
	Night        bool
}

// ShiftFromModel converts a stored shift.
func ShiftFromModel(s *models.Shift) (*Shift, error) {
	if s == nil {
		return nil, nil
	}
	start, end, err := s.ClockOffsets()
	if err != nil {
		return nil, err
	}
	return &Shift{
		Code:         s.Code,
		Start:        start,
		End:          end,
		BreakMinutes: s.BreakMinutes,
		GraceMinutes: s.GraceMinutes,
		Night:        s.IsNightShift,
	}, nil
}

// Span returns the scheduled shift length. Shifts ending at or before
// their start run past midnight.
func (s *Shift) Span() time.Duration {
	if s.End <= s.Start {
		return s.End + 24*time.Hour - s.Start
	}
	return s.End - s.Start
}

// Roster is a per-day override of the subject's default shift.
type Roster struct {
	Shift *Shift
	Off   bool
}

// DayInput is everything Evaluate needs for one subject on one date.
type DayInput struct {
	// Date is the calendar day; only its year, month and day are used.
	Date     time.Time
	Location *time.Location
	Punches  []time.Time

	DefaultShift *Shift
	Roster       *Roster

	Holiday bool
	Leave   bool

	ExpectedHours float64
}

// DayResult is the computed attendance for one subject on one date.
type DayResult struct {
	Status          models.AttendanceStatus
	Shift           *Shift
	CheckIn         *time.Time
	CheckOut        *time.Time
	WorkHours       float64
	OvertimeHours   float64
	LateMinutes     int
	EarlyOutMinutes int
	NightShift      bool
	Flags           []string
}

// Remarks joins the result flags for storage.
func (r DayResult) Remarks() string {
	return strings.Join(r.Flags, "; ")
}

// Evaluate computes the attendance verdict for one subject-day.
func (c Config) Evaluate(in DayInput) DayResult {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := in.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	var res DayResult

	// 1 第一条为签到，多于一条时最后一条为签退
	punches := append([]time.Time(nil), in.Punches...)
	sort.Slice(punches, func(i, j int) bool { return punches[i].Before(punches[j]) })
	if len(punches) > 0 {
		first := punches[0].In(loc)
		res.CheckIn = &first
	}
	if len(punches) > 1 {
		last := punches[len(punches)-1].In(loc)
		res.CheckOut = &last
	}

	// 2 排班覆盖默认班次，休息日视同周末
	weekend := c.IsWeekend(midnight)
	shift := in.DefaultShift
	if in.Roster != nil {
		shift = in.Roster.Shift
		if in.Roster.Off {
			weekend = true
		}
	}
	res.Shift = shift
	res.NightShift = shift != nil && shift.Night

	// 4 工时 = 签退 - 签到 - 休息
	var work float64
	if res.CheckIn != nil && res.CheckOut != nil {
		total := res.CheckOut.Sub(*res.CheckIn).Hours()
		work = math.Max(0, total-c.breakHours(shift, total))
	}

	// 3 状态优先级
	switch {
	case weekend:
		res.Status = models.StatusWeekend
	case in.Holiday:
		res.Status = models.StatusHoliday
	case in.Leave:
		res.Status = models.StatusLeave
	case res.CheckIn == nil && res.CheckOut == nil:
		res.Status = models.StatusAbsent
	case c.RequireBothInAndOut && (res.CheckIn == nil || res.CheckOut == nil):
		res.Status = models.StatusAbsent
	case c.EnableMinimumWorkingHoursRule && work < c.MinimumWorkingHoursForPresent:
		res.Status = models.StatusAbsent
	default:
		res.Status = models.StatusPresent
	}
	if res.Status == models.StatusPresent && c.EnableHalfDayRule &&
		work >= c.HalfDayMinimumHours && work < c.HalfDayMaximumHours {
		res.Status = models.StatusHalfDay
	}
	if c.EnableMaximumWorkingHoursRule && work > c.MaximumAllowableWorkingHours {
		res.Flags = append(res.Flags, "exceeds maximum working hours")
	}

	// 5 迟到
	if res.CheckIn != nil && shift != nil {
		graceEnd := midnight.Add(shift.Start + time.Duration(c.graceMinutes(shift))*time.Minute)
		if res.CheckIn.After(graceEnd) {
			res.LateMinutes = int(res.CheckIn.Sub(graceEnd).Minutes())
		}
	}

	// 6 早退
	if res.CheckOut != nil && shift != nil {
		end := midnight.Add(shift.Start + shift.Span())
		threshold := end.Add(-time.Duration(c.EarlyOutThresholdMinutes) * time.Minute)
		if res.CheckOut.Before(threshold) {
			res.EarlyOutMinutes = int(threshold.Sub(*res.CheckOut).Minutes())
		}
		if c.EnableMaxEarlyOutFlagging && res.EarlyOutMinutes > c.MaxEarlyOutThresholdMinutes {
			res.Flags = append(res.Flags, "early out beyond threshold")
		}
	}

	// 7 加班
	if res.Status == models.StatusPresent && work > 0 {
		expected := c.expectedHours(shift, in.ExpectedHours)
		if work > expected {
			ot := work - expected
			if ot >= float64(c.MinimumOvertimeMinutes)/60 {
				res.OvertimeHours = ot
			}
		}
	}

	res.WorkHours = Round2(work)
	res.OvertimeHours = Round2(res.OvertimeHours)
	return res
}

func (c Config) breakHours(shift *Shift, totalHours float64) float64 {
	minutes := c.DefaultBreakMinutes
	if c.UseShiftBreakTime && shift != nil {
		minutes = shift.BreakMinutes
	}
	hours := float64(minutes) / 60
	// 按实际在岗时长占班次时长的比例扣减
	if c.BreakDeductionMethod == models.BreakProportional && shift != nil {
		span := shift.Span().Hours()
		if span > 0 && totalHours < span {
			hours *= totalHours / span
		}
	}
	return hours
}

func (c Config) graceMinutes(shift *Shift) int {
	if c.UseShiftGraceTime && shift != nil {
		return shift.GraceMinutes
	}
	return c.GraceMinutes
}

func (c Config) expectedHours(shift *Shift, employeeHours float64) float64 {
	if c.OvertimeCalculationMethod == models.OvertimeShiftBased && shift != nil {
		return shift.Span().Hours() - float64(shift.BreakMinutes)/60
	}
	if !c.UseEmployeeExpectedHours || employeeHours <= 0 {
		return 8
	}
	return employeeHours
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
