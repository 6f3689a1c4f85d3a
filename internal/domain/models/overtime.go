package models

import "time"

// OvertimeType 加班类型
type OvertimeType string

const (
	OvertimeRegular OvertimeType = "regular"
	OvertimeHoliday OvertimeType = "holiday"
	OvertimeWeekend OvertimeType = "weekend"
	OvertimeNight   OvertimeType = "night"
)

// OvertimeStatus 加班审批状态 (审批流程在外部)
type OvertimeStatus string

const (
	OvertimePending  OvertimeStatus = "pending"
	OvertimeApproved OvertimeStatus = "approved"
	OvertimeRejected OvertimeStatus = "rejected"
	OvertimePaid     OvertimeStatus = "paid"
)

// OvertimeRecord 由考勤记录生成的加班记录，(subject_id, date) 唯一
type OvertimeRecord struct {
	BaseModel
	SubjectID    string         `gorm:"type:varchar(50);uniqueIndex:idx_overtime_day,priority:1;not null" json:"subject_id"`
	Date         time.Time      `gorm:"type:date;uniqueIndex:idx_overtime_day,priority:2;not null" json:"date"`
	Scope        string         `gorm:"type:varchar(50);index" json:"scope"`
	AttendanceID uint           `json:"attendance_id"`
	ShiftCode    *string        `gorm:"type:varchar(20)" json:"shift_code,omitempty"`
	StartTime    *time.Time     `json:"start_time,omitempty"`
	Type         OvertimeType   `gorm:"type:varchar(20)" json:"type"`
	Hours        float64        `json:"hours"`
	HourlyRate   float64        `json:"hourly_rate"`
	Multiplier   float64        `gorm:"default:1.5" json:"multiplier"`
	TotalAmount  float64        `json:"total_amount"`
	Status       OvertimeStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Remarks      string         `gorm:"type:varchar(255)" json:"remarks"`
}
