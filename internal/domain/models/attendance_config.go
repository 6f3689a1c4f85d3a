package models

import "gorm.io/datatypes"

// BreakDeductionMethod 休息时间扣减方式
type BreakDeductionMethod string

const (
	BreakFixed        BreakDeductionMethod = "fixed"
	BreakProportional BreakDeductionMethod = "proportional"
)

// ShiftPriority 动态班次匹配多个时的优先级
type ShiftPriority string

const (
	PriorityLeastBreak       ShiftPriority = "least_break"
	PriorityShortestDuration ShiftPriority = "shortest_duration"
	PriorityAlphabetical     ShiftPriority = "alphabetical"
	PriorityHighestScore     ShiftPriority = "highest_score"
)

// OvertimeMethod 加班计算方式
type OvertimeMethod string

const (
	OvertimeShiftBased    OvertimeMethod = "shift_based"
	OvertimeEmployeeBased OvertimeMethod = "employee_based"
	OvertimeFixedHours    OvertimeMethod = "fixed_hours"
)

// AttendanceConfig 考勤规则配置，每个 scope 同时只有一个 active
type AttendanceConfig struct {
	BaseModel
	Scope    string `gorm:"type:varchar(50);uniqueIndex:idx_config_scope_name,priority:1;not null" json:"scope"`
	Name     string `gorm:"type:varchar(100);uniqueIndex:idx_config_scope_name,priority:2;not null" json:"name"`
	IsActive bool   `gorm:"index" json:"is_active"`

	// 基础设置
	GraceMinutes              int `json:"grace_minutes"`
	EarlyOutThresholdMinutes  int `json:"early_out_threshold_minutes"`
	OvertimeStartAfterMinutes int `json:"overtime_start_after_minutes"`
	MinimumOvertimeMinutes    int `json:"minimum_overtime_minutes"`

	// 周末 (0=周一 ... 6=周日)
	WeekendDays datatypes.JSONSlice[int] `json:"weekend_days"`

	// 休息时间
	DefaultBreakMinutes  int                  `json:"default_break_minutes"`
	UseShiftBreakTime    bool                 `json:"use_shift_break_time"`
	BreakDeductionMethod BreakDeductionMethod `gorm:"type:varchar(20)" json:"break_deduction_method"`

	// 增强规则
	EnableMinimumWorkingHoursRule bool    `json:"enable_minimum_working_hours_rule"`
	MinimumWorkingHoursForPresent float64 `json:"minimum_working_hours_for_present"`
	EnableHalfDayRule             bool    `json:"enable_working_hours_half_day_rule"`
	HalfDayMinimumHours           float64 `json:"half_day_minimum_hours"`
	HalfDayMaximumHours           float64 `json:"half_day_maximum_hours"`
	RequireBothInAndOut           bool    `json:"require_both_in_and_out"`
	EnableMaximumWorkingHoursRule bool    `json:"enable_maximum_working_hours_rule"`
	MaximumAllowableWorkingHours  float64 `json:"maximum_allowable_working_hours"`

	// 动态班次识别
	EnableDynamicShiftDetection   bool          `json:"enable_dynamic_shift_detection"`
	DynamicShiftToleranceMinutes  int           `json:"dynamic_shift_tolerance_minutes"`
	MultipleShiftPriority         ShiftPriority `gorm:"type:varchar(20)" json:"multiple_shift_priority"`
	DynamicShiftFallbackToDefault bool          `json:"dynamic_shift_fallback_to_default"`
	DynamicShiftFallbackShiftCode *string       `gorm:"type:varchar(20)" json:"dynamic_shift_fallback_shift_code,omitempty"`

	UseShiftGraceTime bool `json:"use_shift_grace_time"`

	// 标记规则
	EnableConsecutiveAbsenceFlagging bool `json:"enable_consecutive_absence_flagging"`
	ConsecutiveAbsenceRiskDays       int  `json:"consecutive_absence_termination_risk_days"`
	EnableMaxEarlyOutFlagging        bool `json:"enable_max_early_out_flagging"`
	MaxEarlyOutThresholdMinutes      int  `json:"max_early_out_threshold_minutes"`
	MaxEarlyOutOccurrences           int  `json:"max_early_out_occurrences"`

	// 加班设置
	OvertimeCalculationMethod OvertimeMethod `gorm:"type:varchar(20)" json:"overtime_calculation_method"`
	HolidayOvertimeFullDay    bool           `json:"holiday_overtime_full_day"`
	WeekendOvertimeFullDay    bool           `json:"weekend_overtime_full_day"`
	LateAffectsOvertime       bool           `json:"late_affects_overtime"`
	SeparateOTBreakMinutes    int            `json:"separate_ot_break_time"`

	// 员工个性化设置
	UseEmployeeSpecificGrace    bool `json:"use_employee_specific_grace"`
	UseEmployeeSpecificOvertime bool `json:"use_employee_specific_overtime"`
	UseEmployeeExpectedHours    bool `json:"use_employee_expected_hours"`
}
