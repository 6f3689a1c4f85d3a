package rules

import "github.com/oleeahmmed/hrm/internal/domain/models"

// 加班倍率
const (
	HolidayMultiplier = 2.0
	WeekendMultiplier = 1.75
	NightMultiplier   = 1.5
	RegularMultiplier = 1.5

	// WorkingDaysPerMonth 月薪折算时薪时的月工作天数
	WorkingDaysPerMonth = 26
)

// ClassifyOvertime picks the overtime type by precedence holiday, then
// weekend, then night shift, then regular.
func ClassifyOvertime(holiday, weekend, night bool) (models.OvertimeType, float64) {
	switch {
	case holiday:
		return models.OvertimeHoliday, HolidayMultiplier
	case weekend:
		return models.OvertimeWeekend, WeekendMultiplier
	case night:
		return models.OvertimeNight, NightMultiplier
	default:
		return models.OvertimeRegular, RegularMultiplier
	}
}

// ResolveHourlyRate returns the subject's explicit per-hour rate, or a
// rate derived from the monthly base salary. A positive overtime rate
// overrides both.
func ResolveHourlyRate(perHour, overtimeRate, baseSalary, expectedHours float64) float64 {
	rate := 0.0
	switch {
	case perHour > 0:
		rate = perHour
	case baseSalary > 0 && expectedHours > 0:
		rate = baseSalary / WorkingDaysPerMonth / expectedHours
	}
	if overtimeRate > 0 {
		rate = overtimeRate
	}
	return Round2(rate)
}
