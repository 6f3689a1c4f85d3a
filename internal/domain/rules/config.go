// Package rules turns a subject's punches and reference data for one day
// into an attendance verdict, and classifies overtime. It is pure: all
// inputs arrive as values and nothing is read or written here.
package rules

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

// Config is the rule set for one batch. Build it with DefaultConfig or
// FromModel and treat it as read-only afterwards.
type Config struct {
	GraceMinutes              int   `yaml:"grace_minutes" json:"grace_minutes"`
	EarlyOutThresholdMinutes  int   `yaml:"early_out_threshold_minutes" json:"early_out_threshold_minutes"`
	OvertimeStartAfterMinutes int   `yaml:"overtime_start_after_minutes" json:"overtime_start_after_minutes"`
	MinimumOvertimeMinutes    int   `yaml:"minimum_overtime_minutes" json:"minimum_overtime_minutes"`
	WeekendDays               []int `yaml:"weekend_days" json:"weekend_days"` // 0=Monday

	DefaultBreakMinutes  int                         `yaml:"default_break_minutes" json:"default_break_minutes"`
	UseShiftBreakTime    bool                        `yaml:"use_shift_break_time" json:"use_shift_break_time"`
	BreakDeductionMethod models.BreakDeductionMethod `yaml:"break_deduction_method" json:"break_deduction_method"`

	EnableMinimumWorkingHoursRule bool    `yaml:"enable_minimum_working_hours_rule" json:"enable_minimum_working_hours_rule"`
	MinimumWorkingHoursForPresent float64 `yaml:"minimum_working_hours_for_present" json:"minimum_working_hours_for_present"`
	EnableHalfDayRule             bool    `yaml:"enable_working_hours_half_day_rule" json:"enable_working_hours_half_day_rule"`
	HalfDayMinimumHours           float64 `yaml:"half_day_minimum_hours" json:"half_day_minimum_hours"`
	HalfDayMaximumHours           float64 `yaml:"half_day_maximum_hours" json:"half_day_maximum_hours"`
	RequireBothInAndOut           bool    `yaml:"require_both_in_and_out" json:"require_both_in_and_out"`
	EnableMaximumWorkingHoursRule bool    `yaml:"enable_maximum_working_hours_rule" json:"enable_maximum_working_hours_rule"`
	MaximumAllowableWorkingHours  float64 `yaml:"maximum_allowable_working_hours" json:"maximum_allowable_working_hours"`

	EnableDynamicShiftDetection   bool                 `yaml:"enable_dynamic_shift_detection" json:"enable_dynamic_shift_detection"`
	DynamicShiftToleranceMinutes  int                  `yaml:"dynamic_shift_tolerance_minutes" json:"dynamic_shift_tolerance_minutes"`
	MultipleShiftPriority         models.ShiftPriority `yaml:"multiple_shift_priority" json:"multiple_shift_priority"`
	DynamicShiftFallbackToDefault bool                 `yaml:"dynamic_shift_fallback_to_default" json:"dynamic_shift_fallback_to_default"`
	DynamicShiftFallbackShiftCode string               `yaml:"dynamic_shift_fallback_shift_code" json:"dynamic_shift_fallback_shift_code"`

	UseShiftGraceTime bool `yaml:"use_shift_grace_time" json:"use_shift_grace_time"`

	EnableConsecutiveAbsenceFlagging bool `yaml:"enable_consecutive_absence_flagging" json:"enable_consecutive_absence_flagging"`
	ConsecutiveAbsenceRiskDays       int  `yaml:"consecutive_absence_termination_risk_days" json:"consecutive_absence_termination_risk_days"`
	EnableMaxEarlyOutFlagging        bool `yaml:"enable_max_early_out_flagging" json:"enable_max_early_out_flagging"`
	MaxEarlyOutThresholdMinutes      int  `yaml:"max_early_out_threshold_minutes" json:"max_early_out_threshold_minutes"`
	MaxEarlyOutOccurrences           int  `yaml:"max_early_out_occurrences" json:"max_early_out_occurrences"`

	OvertimeCalculationMethod models.OvertimeMethod `yaml:"overtime_calculation_method" json:"overtime_calculation_method"`
	HolidayOvertimeFullDay    bool                  `yaml:"holiday_overtime_full_day" json:"holiday_overtime_full_day"`
	WeekendOvertimeFullDay    bool                  `yaml:"weekend_overtime_full_day" json:"weekend_overtime_full_day"`
	LateAffectsOvertime       bool                  `yaml:"late_affects_overtime" json:"late_affects_overtime"`
	SeparateOTBreakMinutes    int                   `yaml:"separate_ot_break_time" json:"separate_ot_break_time"`

	UseEmployeeSpecificGrace    bool `yaml:"use_employee_specific_grace" json:"use_employee_specific_grace"`
	UseEmployeeSpecificOvertime bool `yaml:"use_employee_specific_overtime" json:"use_employee_specific_overtime"`
	UseEmployeeExpectedHours    bool `yaml:"use_employee_expected_hours" json:"use_employee_expected_hours"`
}

// DefaultConfig is the rule set used when a scope has no active
// configuration. Every default lives here.
func DefaultConfig() Config {
	return Config{
		GraceMinutes:              15,
		EarlyOutThresholdMinutes:  30,
		OvertimeStartAfterMinutes: 15,
		MinimumOvertimeMinutes:    60,
		WeekendDays:               []int{4}, // Friday

		DefaultBreakMinutes:  60,
		UseShiftBreakTime:    true,
		BreakDeductionMethod: models.BreakFixed,

		MinimumWorkingHoursForPresent: 4.0,
		HalfDayMinimumHours:           4.0,
		HalfDayMaximumHours:           6.0,
		MaximumAllowableWorkingHours:  16.0,

		DynamicShiftToleranceMinutes:  30,
		MultipleShiftPriority:         models.PriorityLeastBreak,
		DynamicShiftFallbackToDefault: true,

		ConsecutiveAbsenceRiskDays:  5,
		MaxEarlyOutThresholdMinutes: 120,
		MaxEarlyOutOccurrences:      3,

		OvertimeCalculationMethod: models.OvertimeEmployeeBased,
		HolidayOvertimeFullDay:    true,
		WeekendOvertimeFullDay:    true,

		UseEmployeeSpecificGrace:    true,
		UseEmployeeSpecificOvertime: true,
		UseEmployeeExpectedHours:    true,
	}
}

// Validate rejects settings the engine cannot evaluate.
func (c Config) Validate() error {
	if c.GraceMinutes < 0 || c.EarlyOutThresholdMinutes < 0 || c.MinimumOvertimeMinutes < 0 || c.DefaultBreakMinutes < 0 {
		return fmt.Errorf("minute settings must not be negative")
	}
	for _, d := range c.WeekendDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekend day %d out of range 0-6", d)
		}
	}
	if c.EnableHalfDayRule && c.HalfDayMinimumHours >= c.HalfDayMaximumHours {
		return fmt.Errorf("half day range [%.2f, %.2f) is empty", c.HalfDayMinimumHours, c.HalfDayMaximumHours)
	}
	switch c.BreakDeductionMethod {
	case models.BreakFixed, models.BreakProportional:
	default:
		return fmt.Errorf("unknown break deduction method %q", c.BreakDeductionMethod)
	}
	switch c.OvertimeCalculationMethod {
	case models.OvertimeShiftBased, models.OvertimeEmployeeBased, models.OvertimeFixedHours:
	default:
		return fmt.Errorf("unknown overtime method %q", c.OvertimeCalculationMethod)
	}
	return nil
}

// IsWeekend reports whether d falls on a configured weekend day.
func (c Config) IsWeekend(d time.Time) bool {
	wd := (int(d.Weekday()) + 6) % 7
	for _, w := range c.WeekendDays {
		if w == wd {
			return true
		}
	}
	return false
}

// FromModel copies a stored configuration into a Config.
func FromModel(m *models.AttendanceConfig) Config {
	c := Config{
		GraceMinutes:              m.GraceMinutes,
		EarlyOutThresholdMinutes:  m.EarlyOutThresholdMinutes,
		OvertimeStartAfterMinutes: m.OvertimeStartAfterMinutes,
		MinimumOvertimeMinutes:    m.MinimumOvertimeMinutes,
		WeekendDays:               append([]int(nil), m.WeekendDays...),

		DefaultBreakMinutes:  m.DefaultBreakMinutes,
		UseShiftBreakTime:    m.UseShiftBreakTime,
		BreakDeductionMethod: m.BreakDeductionMethod,

		EnableMinimumWorkingHoursRule: m.EnableMinimumWorkingHoursRule,
		MinimumWorkingHoursForPresent: m.MinimumWorkingHoursForPresent,
		EnableHalfDayRule:             m.EnableHalfDayRule,
		HalfDayMinimumHours:           m.HalfDayMinimumHours,
		HalfDayMaximumHours:           m.HalfDayMaximumHours,
		RequireBothInAndOut:           m.RequireBothInAndOut,
		EnableMaximumWorkingHoursRule: m.EnableMaximumWorkingHoursRule,
		MaximumAllowableWorkingHours:  m.MaximumAllowableWorkingHours,

		EnableDynamicShiftDetection:   m.EnableDynamicShiftDetection,
		DynamicShiftToleranceMinutes:  m.DynamicShiftToleranceMinutes,
		MultipleShiftPriority:         m.MultipleShiftPriority,
		DynamicShiftFallbackToDefault: m.DynamicShiftFallbackToDefault,

		UseShiftGraceTime: m.UseShiftGraceTime,

		EnableConsecutiveAbsenceFlagging: m.EnableConsecutiveAbsenceFlagging,
		ConsecutiveAbsenceRiskDays:       m.ConsecutiveAbsenceRiskDays,
		EnableMaxEarlyOutFlagging:        m.EnableMaxEarlyOutFlagging,
		MaxEarlyOutThresholdMinutes:      m.MaxEarlyOutThresholdMinutes,
		MaxEarlyOutOccurrences:           m.MaxEarlyOutOccurrences,

		OvertimeCalculationMethod: m.OvertimeCalculationMethod,
		HolidayOvertimeFullDay:    m.HolidayOvertimeFullDay,
		WeekendOvertimeFullDay:    m.WeekendOvertimeFullDay,
		LateAffectsOvertime:       m.LateAffectsOvertime,
		SeparateOTBreakMinutes:    m.SeparateOTBreakMinutes,

		UseEmployeeSpecificGrace:    m.UseEmployeeSpecificGrace,
		UseEmployeeSpecificOvertime: m.UseEmployeeSpecificOvertime,
		UseEmployeeExpectedHours:    m.UseEmployeeExpectedHours,
	}
	if m.DynamicShiftFallbackShiftCode != nil {
		c.DynamicShiftFallbackShiftCode = *m.DynamicShiftFallbackShiftCode
	}
	if c.BreakDeductionMethod == "" {
		c.BreakDeductionMethod = models.BreakFixed
	}
	if c.MultipleShiftPriority == "" {
		c.MultipleShiftPriority = models.PriorityLeastBreak
	}
	if c.OvertimeCalculationMethod == "" {
		c.OvertimeCalculationMethod = models.OvertimeEmployeeBased
	}
	return c
}

// ToModel builds a storable configuration row. The row is inactive.
func (c Config) ToModel(scope, name string) *models.AttendanceConfig {
	m := &models.AttendanceConfig{
		Scope: scope,
		Name:  name,

		GraceMinutes:              c.GraceMinutes,
		EarlyOutThresholdMinutes:  c.EarlyOutThresholdMinutes,
		OvertimeStartAfterMinutes: c.OvertimeStartAfterMinutes,
		MinimumOvertimeMinutes:    c.MinimumOvertimeMinutes,
		WeekendDays:               append([]int{}, c.WeekendDays...),

		DefaultBreakMinutes:  c.DefaultBreakMinutes,
		UseShiftBreakTime:    c.UseShiftBreakTime,
		BreakDeductionMethod: c.BreakDeductionMethod,

		EnableMinimumWorkingHoursRule: c.EnableMinimumWorkingHoursRule,
		MinimumWorkingHoursForPresent: c.MinimumWorkingHoursForPresent,
		EnableHalfDayRule:             c.EnableHalfDayRule,
		HalfDayMinimumHours:           c.HalfDayMinimumHours,
		HalfDayMaximumHours:           c.HalfDayMaximumHours,
		RequireBothInAndOut:           c.RequireBothInAndOut,
		EnableMaximumWorkingHoursRule: c.EnableMaximumWorkingHoursRule,
		MaximumAllowableWorkingHours:  c.MaximumAllowableWorkingHours,

		EnableDynamicShiftDetection:   c.EnableDynamicShiftDetection,
		DynamicShiftToleranceMinutes:  c.DynamicShiftToleranceMinutes,
		MultipleShiftPriority:         c.MultipleShiftPriority,
		DynamicShiftFallbackToDefault: c.DynamicShiftFallbackToDefault,

		UseShiftGraceTime: c.UseShiftGraceTime,

		EnableConsecutiveAbsenceFlagging: c.EnableConsecutiveAbsenceFlagging,
		ConsecutiveAbsenceRiskDays:       c.ConsecutiveAbsenceRiskDays,
		EnableMaxEarlyOutFlagging:        c.EnableMaxEarlyOutFlagging,
		MaxEarlyOutThresholdMinutes:      c.MaxEarlyOutThresholdMinutes,
		MaxEarlyOutOccurrences:           c.MaxEarlyOutOccurrences,

		OvertimeCalculationMethod: c.OvertimeCalculationMethod,
		HolidayOvertimeFullDay:    c.HolidayOvertimeFullDay,
		WeekendOvertimeFullDay:    c.WeekendOvertimeFullDay,
		LateAffectsOvertime:       c.LateAffectsOvertime,
		SeparateOTBreakMinutes:    c.SeparateOTBreakMinutes,

		UseEmployeeSpecificGrace:    c.UseEmployeeSpecificGrace,
		UseEmployeeSpecificOvertime: c.UseEmployeeSpecificOvertime,
		UseEmployeeExpectedHours:    c.UseEmployeeExpectedHours,
	}
	if c.DynamicShiftFallbackShiftCode != "" {
		code := c.DynamicShiftFallbackShiftCode
		m.DynamicShiftFallbackShiftCode = &code
	}
	return m
}

// File is the on-disk YAML form of a named rule set.
type File struct {
	Name   string `yaml:"name"`
	Config `yaml:",inline"`
}

// LoadFile decodes a YAML rule file. Keys missing from the file keep
// their DefaultConfig value.
func LoadFile(r io.Reader) (File, error) {
	f := File{Config: DefaultConfig()}
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode rule file: %w", err)
	}
	if f.Name == "" {
		return File{}, fmt.Errorf("rule file has no name")
	}
	if err := f.Config.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}
