package models

import "time"

// AttendanceStatus 每日考勤状态
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusHalfDay AttendanceStatus = "half_day"
	StatusLeave   AttendanceStatus = "leave"
	StatusHoliday AttendanceStatus = "holiday"
	StatusWeekend AttendanceStatus = "weekend"
)

// AttendanceRecord 每日考勤结果，(subject_id, date) 唯一，由规则引擎写入
type AttendanceRecord struct {
	BaseModel
	SubjectID       string           `gorm:"type:varchar(50);uniqueIndex:idx_attendance_day,priority:1;not null" json:"subject_id"`
	Date            time.Time        `gorm:"type:date;uniqueIndex:idx_attendance_day,priority:2;not null" json:"date"`
	Scope           string           `gorm:"type:varchar(50);index" json:"scope"`
	ShiftCode       *string          `gorm:"type:varchar(20)" json:"shift_code,omitempty"`
	CheckIn         *time.Time       `json:"check_in,omitempty"`
	CheckOut        *time.Time       `json:"check_out,omitempty"`
	Status          AttendanceStatus `gorm:"type:varchar(20);not null" json:"status"`
	WorkHours       float64          `json:"work_hours"`
	OvertimeHours   float64          `json:"overtime_hours"`
	LateMinutes     int              `json:"late_minutes"`
	EarlyOutMinutes int              `json:"early_out_minutes"`
	IsNightShift    bool             `json:"is_night_shift"`
	Remarks         string           `gorm:"type:varchar(255)" json:"remarks"`
}
