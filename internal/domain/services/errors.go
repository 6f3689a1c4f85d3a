package services

import "errors"

// 业务错误，控制器据此映射错误码
var (
	ErrDeviceNotFound     = errors.New("设备不存在")
	ErrDeviceAlreadyExist = errors.New("设备序列号已存在")
	ErrDeviceNoPull       = errors.New("设备不支持TCP拉取")
	ErrCommandNotFound    = errors.New("命令不存在")
	ErrCommandKindInvalid = errors.New("无效的命令类型")
	ErrCommandUnsupported = errors.New("该连接方式不支持此命令")
	ErrSyncLogNotFound    = errors.New("同步记录不存在")
	ErrBatchInProgress    = errors.New("该范围的考勤批处理正在运行")
	ErrDateRangeInvalid   = errors.New("无效的日期范围")
	ErrConfigNotFound     = errors.New("考勤配置不存在")
	ErrConfigInvalid      = errors.New("考勤配置无效")
	ErrAdminNotFound      = errors.New("管理员不存在")
	ErrAdminAlreadyExist  = errors.New("管理员用户名已存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrPushTruncated      = errors.New("上传数据超出大小上限，已截断")
)
