package models

import "time"

// SyncType TCP 同步类型
type SyncType string

const (
	SyncUsers      SyncType = "users"
	SyncAttendance SyncType = "attendance"
	SyncCommand    SyncType = "command"
	SyncAll        SyncType = "all"
)

// SyncStatus 同步状态
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncLog 记录每一次 TCP 拉取操作
type SyncLog struct {
	BaseModel
	RunID          string     `gorm:"type:varchar(36);uniqueIndex" json:"run_id"`
	DeviceID       uint       `gorm:"index;not null" json:"device_id"`
	SyncType       SyncType   `gorm:"type:varchar(20)" json:"sync_type"`
	Status         SyncStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	RecordsFound   int        `json:"records_found"`
	RecordsSynced  int        `json:"records_synced"`
	RecordsSkipped int        `json:"records_skipped"`
	RecordsFailed  int        `json:"records_failed"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
