package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "成功",
	ErrUnknown:         "未知错误",
	ErrBind:            "请求参数绑定错误",
	ErrValidation:      "请求参数验证错误",
	ErrTokenInvalid:    "无效的认证令牌",
	ErrTooManyRequests: "请求频率过高",

	// 用户相关错误码
	ErrUserNotFound:          "用户不存在",
	ErrUserPasswordIncorrect: "用户密码错误",
	ErrUserAlreadyExist:      "用户名已存在",

	// 设备相关错误码
	ErrDeviceNotFound:     "设备不存在",
	ErrDeviceAlreadyExist: "设备已存在",
	ErrDeviceOffline:      "设备当前离线",
	ErrDeviceNoPull:       "设备不支持TCP拉取",

	// 命令相关错误码
	ErrCommandNotFound:    "命令不存在",
	ErrCommandKindInvalid: "无效的命令类型",
	ErrCommandUnsupported: "该连接方式不支持此命令",

	// 同步相关错误码
	ErrSyncFailed:      "设备同步失败",
	ErrSyncLogNotFound: "同步记录不存在",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",

	// 考勤相关错误码
	ErrBatchInProgress:  "该范围的考勤批处理正在运行",
	ErrDateRangeInvalid: "无效的日期范围",
	ErrBatchFailed:      "考勤批处理失败",

	// 配置相关错误码
	ErrConfigNotFound: "考勤配置不存在",
	ErrConfigInvalid:  "考勤配置无效",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,

	// 用户相关错误码
	ErrUserNotFound:          StatusNotFound,
	ErrUserPasswordIncorrect: StatusUnauthorized,
	ErrUserAlreadyExist:      StatusBadRequest,

	// 设备相关错误码
	ErrDeviceNotFound:     StatusNotFound,
	ErrDeviceAlreadyExist: StatusBadRequest,
	ErrDeviceOffline:      StatusBadRequest,
	ErrDeviceNoPull:       StatusBadRequest,

	// 命令相关错误码
	ErrCommandNotFound:    StatusNotFound,
	ErrCommandKindInvalid: StatusBadRequest,
	ErrCommandUnsupported: StatusBadRequest,

	// 同步相关错误码
	ErrSyncFailed:      StatusInternalServerError,
	ErrSyncLogNotFound: StatusNotFound,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	// 考勤相关错误码
	ErrBatchInProgress:  StatusConflict,
	ErrDateRangeInvalid: StatusBadRequest,
	ErrBatchFailed:      StatusInternalServerError,

	// 配置相关错误码
	ErrConfigNotFound: StatusNotFound,
	ErrConfigInvalid:  StatusBadRequest,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return codeMessageMap[ErrUnknown]
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
