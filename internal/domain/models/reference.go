package models

import (
	"fmt"
	"time"
)

// Shift 班次定义，时间为 "HH:MM"
type Shift struct {
	BaseModel
	Code         string `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name         string `gorm:"type:varchar(100)" json:"name"`
	StartTime    string `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime      string `gorm:"type:varchar(5);not null" json:"end_time"`
	BreakMinutes int    `json:"break_minutes"`
	GraceMinutes int    `json:"grace_minutes"`
	IsNightShift bool   `gorm:"default:false" json:"is_night_shift"`
}

// ClockOffsets 将开始、结束时间解析为距当日零点的时长
func (s *Shift) ClockOffsets() (start, end time.Duration, err error) {
	if start, err = parseClock(s.StartTime); err != nil {
		return 0, 0, fmt.Errorf("shift %s start: %w", s.Code, err)
	}
	if end, err = parseClock(s.EndTime); err != nil {
		return 0, 0, fmt.Errorf("shift %s end: %w", s.Code, err)
	}
	return start, end, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		t, err = time.Parse("15:04:05", v)
		if err != nil {
			return 0, err
		}
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// Employee 考勤主体的最小档案
type Employee struct {
	BaseModel
	SubjectID        string  `gorm:"type:varchar(50);uniqueIndex;not null" json:"subject_id"`
	Scope            string  `gorm:"type:varchar(50);index" json:"scope"`
	Name             string  `gorm:"type:varchar(100)" json:"name"`
	DefaultShiftCode *string `gorm:"type:varchar(20)" json:"default_shift_code,omitempty"`
	ExpectedHours    float64 `gorm:"default:8" json:"expected_hours"`
	BaseSalary       float64 `gorm:"default:0" json:"base_salary"`
	PerHourRate      float64 `gorm:"default:0" json:"per_hour_rate"`
	OvertimeRate     float64 `gorm:"default:0" json:"overtime_rate"`
	IsActive         bool    `gorm:"not null" json:"is_active"`
}

// RosterDay 排班覆盖，优先于默认班次
type RosterDay struct {
	BaseModel
	SubjectID string    `gorm:"type:varchar(50);uniqueIndex:idx_roster_day,priority:1;not null" json:"subject_id"`
	Date      time.Time `gorm:"type:date;uniqueIndex:idx_roster_day,priority:2;not null" json:"date"`
	ShiftCode *string   `gorm:"type:varchar(20)" json:"shift_code,omitempty"`
	IsOff     bool      `gorm:"default:false" json:"is_off"`
}

// Holiday 节假日
type Holiday struct {
	BaseModel
	Scope      string    `gorm:"type:varchar(50);index" json:"scope"`
	Date       time.Time `gorm:"type:date;index;not null" json:"date"`
	Name       string    `gorm:"type:varchar(100)" json:"name"`
	IsOptional bool      `gorm:"default:false" json:"is_optional"`
}

// LeaveStatus 请假状态，只有 approved 参与计算
type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

// LeaveGrant 请假区间 [StartDate, EndDate]
type LeaveGrant struct {
	BaseModel
	SubjectID string      `gorm:"type:varchar(50);index;not null" json:"subject_id"`
	StartDate time.Time   `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time   `gorm:"type:date;not null" json:"end_date"`
	Status    LeaveStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
}
