package models

import "time"

// CommandKind 下发给设备的命令类型
type CommandKind string

const (
	CommandReboot        CommandKind = "reboot"
	CommandClearLog      CommandKind = "clear_log"
	CommandClearData     CommandKind = "clear_data"
	CommandClearPhoto    CommandKind = "clear_photo"
	CommandSyncTime      CommandKind = "sync_time"
	CommandGetDeviceInfo CommandKind = "get_device_info"
	CommandHealthCheck   CommandKind = "health_check"
	CommandFetchUsers    CommandKind = "fetch_users"
	CommandFetchLogs     CommandKind = "fetch_logs"
	CommandUpsertUser    CommandKind = "upsert_user"
	CommandDeleteUser    CommandKind = "delete_user"
	CommandSetOption     CommandKind = "set_option"
)

// AllCommandKinds 所有合法的命令类型
var AllCommandKinds = []CommandKind{
	CommandReboot, CommandClearLog, CommandClearData, CommandClearPhoto,
	CommandSyncTime, CommandGetDeviceInfo, CommandHealthCheck,
	CommandFetchUsers, CommandFetchLogs, CommandUpsertUser,
	CommandDeleteUser, CommandSetOption,
}

// Valid 是否为已知命令类型
func (k CommandKind) Valid() bool {
	for _, kind := range AllCommandKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CommandStatus 命令生命周期: pending -> sent -> executed|failed|timeout
type CommandStatus string

const (
	CommandPending  CommandStatus = "pending"
	CommandSent     CommandStatus = "sent"
	CommandExecuted CommandStatus = "executed"
	CommandFailed   CommandStatus = "failed"
	CommandTimeout  CommandStatus = "timeout"
)

// Terminal 是否为终态
func (s CommandStatus) Terminal() bool {
	return s == CommandExecuted || s == CommandFailed || s == CommandTimeout
}

// Command 待下发到设备的命令
type Command struct {
	BaseModel
	DeviceID      uint          `gorm:"index:idx_command_queue,priority:1;not null" json:"device_id"`
	Kind          CommandKind   `gorm:"type:varchar(30);not null" json:"kind"`
	Content       string        `gorm:"type:text" json:"content"`
	Status        CommandStatus `gorm:"type:varchar(20);index:idx_command_queue,priority:2;default:'pending'" json:"status"`
	CorrelationID *string       `gorm:"type:varchar(40);uniqueIndex" json:"correlation_id,omitempty"`
	ReturnCode    *int          `json:"return_code,omitempty"`
	Response      string        `gorm:"type:text" json:"response,omitempty"`
	SentAt        *time.Time    `json:"sent_at,omitempty"`
	ExecutedAt    *time.Time    `json:"executed_at,omitempty"`

	Device *Device `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
}
