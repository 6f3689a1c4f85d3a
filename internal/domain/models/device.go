package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConnectionType 表示设备支持的连接方式
type ConnectionType string

const (
	ConnectionPush ConnectionType = "adms" // 设备主动推送 (iclock)
	ConnectionPull ConnectionType = "tcp"  // 服务器主动拉取 (4370)
	ConnectionBoth ConnectionType = "both"
)

// OnlineWindow 最后活动时间在该窗口内视为在线
const OnlineWindow = 5 * time.Minute

// Device represents a biometric time clock
type Device struct {
	BaseModel
	SerialNumber   string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"serial_number"`
	Name           string         `gorm:"type:varchar(100)" json:"name"`
	ConnectionType ConnectionType `gorm:"type:varchar(10);default:'adms'" json:"connection_type"`
	Scope          string         `gorm:"type:varchar(50);index" json:"scope"`

	// 网络信息 (TCP 拉取模式使用)
	IPAddress         string `gorm:"type:varchar(45)" json:"ip_address"`
	Port              int    `gorm:"default:4370" json:"port"`
	CommKey           int    `gorm:"default:0" json:"-"`
	TCPTimeoutSeconds int    `gorm:"default:5" json:"tcp_timeout_seconds"`
	MACAddress        string `gorm:"type:varchar(20)" json:"mac_address"`

	// 固件信息
	FirmwareVersion string `gorm:"type:varchar(50)" json:"firmware_version"`
	Platform        string `gorm:"type:varchar(50)" json:"platform"`
	PushVersion     string `gorm:"type:varchar(20)" json:"push_version"`
	OEMVendor       string `gorm:"type:varchar(50)" json:"oem_vendor"`

	// 容量计数
	UserCount        int `gorm:"default:0" json:"user_count"`
	FingerprintCount int `gorm:"default:0" json:"fingerprint_count"`
	FaceCount        int `gorm:"default:0" json:"face_count"`
	TransactionCount int `gorm:"default:0" json:"transaction_count"`

	PushIntervalSeconds      int `gorm:"default:30" json:"push_interval_seconds"`
	HeartbeatIntervalSeconds int `gorm:"default:60" json:"heartbeat_interval_seconds"`
	TimezoneOffsetMinutes    int `gorm:"default:0" json:"timezone_offset_minutes"`

	IsActive     bool              `gorm:"default:true" json:"is_active"`
	IsOnline     bool              `gorm:"default:false" json:"is_online"`
	LastActivity *time.Time        `json:"last_activity"`
	Options      datatypes.JSONMap `json:"options,omitempty"`
}

// SupportsPush 设备是否支持 ADMS 推送
func (d *Device) SupportsPush() bool {
	return d.ConnectionType == ConnectionPush || d.ConnectionType == ConnectionBoth || d.ConnectionType == ""
}

// SupportsPull 设备是否支持 TCP 拉取
func (d *Device) SupportsPull() bool {
	return d.ConnectionType == ConnectionPull || d.ConnectionType == ConnectionBoth
}

// IsOnlineAt reports whether the device has been heard from within
// OnlineWindow of now. An explicit offline mark holds until the next
// contact stamps LastActivity again.
func (d *Device) IsOnlineAt(now time.Time) bool {
	if !d.IsOnline || d.LastActivity == nil {
		return false
	}
	return now.Sub(*d.LastActivity) < OnlineWindow
}

// Location 返回设备时区，用于解析设备上报的本地时间
func (d *Device) Location() *time.Location {
	if d.TimezoneOffsetMinutes == 0 {
		return time.UTC
	}
	return time.FixedZone("device", d.TimezoneOffsetMinutes*60)
}

// DeviceHeartbeat 每次握手记录一条心跳快照
type DeviceHeartbeat struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	DeviceID         uint      `gorm:"index;not null" json:"device_id"`
	IPAddress        string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserCount        int       `json:"user_count"`
	FingerprintCount int       `json:"fingerprint_count"`
	FaceCount        int       `json:"face_count"`
	TransactionCount int       `json:"transaction_count"`
	ReceivedAt       time.Time `gorm:"index" json:"received_at"`
}
