package models

import (
	"time"
)

// OperationType 设备操作日志类型
type OperationType string

const (
	OperationEnroll      OperationType = "ENROLL"
	OperationDelete      OperationType = "DELETE"
	OperationUpdate      OperationType = "UPDATE"
	OperationAdminLogin  OperationType = "ADMIN_LOGIN"
	OperationAdminLogout OperationType = "ADMIN_LOGOUT"
	OperationClear       OperationType = "CLEAR"
	OperationReboot      OperationType = "REBOOT"
	OperationOther       OperationType = "OTHER"
)

// OperationTypeFromCode 将设备 OPLOG 操作码映射为操作类型
func OperationTypeFromCode(code int) OperationType {
	switch code {
	case 6, 7, 8, 15, 30:
		return OperationEnroll
	case 9, 10, 11, 12:
		return OperationDelete
	case 5, 16, 36:
		return OperationUpdate
	case 4:
		return OperationAdminLogin
	case 13, 14:
		return OperationClear
	case 0, 1:
		return OperationReboot
	default:
		return OperationOther
	}
}

// DeviceOperationLog 设备上报的操作日志 (OPERLOG 表)
type DeviceOperationLog struct {
	BaseModel
	DeviceID      uint          `gorm:"index;not null" json:"device_id"`
	OperationCode int           `json:"operation_code"`
	OperationType OperationType `gorm:"type:varchar(20)" json:"operation_type"`
	AdminID       string        `gorm:"type:varchar(50)" json:"admin_id"`
	OperatedAt    time.Time     `gorm:"index" json:"operated_at"`
	Params        string        `gorm:"type:varchar(255)" json:"params"`

	// 关联关系
	Device *Device `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
}
