package models

import "time"

// PunchType 打卡状态
type PunchType int

const (
	PunchCheckIn   PunchType = 0
	PunchCheckOut  PunchType = 1
	PunchBreakOut  PunchType = 2
	PunchBreakIn   PunchType = 3
	PunchOTIn      PunchType = 4
	PunchOTOut     PunchType = 5
	PunchUndefined PunchType = 255
)

// VerifyType 验证方式
type VerifyType int

const (
	VerifyPassword    VerifyType = 0
	VerifyFingerprint VerifyType = 1
	VerifyCard        VerifyType = 2
	VerifyFace        VerifyType = 15
	VerifyPalm        VerifyType = 20
)

// PunchSource 打卡数据来源
type PunchSource string

const (
	SourcePush   PunchSource = "adms"
	SourcePull   PunchSource = "tcp"
	SourceManual PunchSource = "manual"
)

// PunchRecord 原始打卡记录，(device_id, subject_id, punch_time) 唯一
type PunchRecord struct {
	BaseModel
	DeviceID    uint        `gorm:"uniqueIndex:idx_punch_dedup,priority:1;not null" json:"device_id"`
	SubjectID   string      `gorm:"type:varchar(50);uniqueIndex:idx_punch_dedup,priority:2;index;not null" json:"subject_id"`
	PunchTime   time.Time   `gorm:"uniqueIndex:idx_punch_dedup,priority:3;index;not null" json:"punch_time"`
	PunchType   PunchType   `json:"punch_type"`
	VerifyType  VerifyType  `gorm:"default:0" json:"verify_type"`
	WorkCode    string      `gorm:"type:varchar(20)" json:"work_code"`
	Source      PunchSource `gorm:"type:varchar(10);default:'adms'" json:"source"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaskStatus  *bool       `json:"mask_status,omitempty"`
	RawPayload  string      `gorm:"type:text" json:"raw_payload,omitempty"`

	Device *Device `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
}
