package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusAccepted - 202: 已接受，后台处理.
	StatusAccepted = 202
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 资源冲突.
	StatusConflict = 409
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
)

// 用户相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserPasswordIncorrect - 401: 用户密码错误.
	ErrUserPasswordIncorrect
	// ErrUserAlreadyExist - 400: 用户名已存在.
	ErrUserAlreadyExist
)

// 设备相关错误码 (102xxx).
const (
	// ErrDeviceNotFound - 404: 设备不存在.
	ErrDeviceNotFound int = iota + 102000
	// ErrDeviceAlreadyExist - 400: 设备已存在.
	ErrDeviceAlreadyExist
	// ErrDeviceOffline - 400: 设备离线.
	ErrDeviceOffline
	// ErrDeviceNoPull - 400: 设备不支持TCP拉取.
	ErrDeviceNoPull
)

// 命令相关错误码 (103xxx).
const (
	// ErrCommandNotFound - 404: 命令不存在.
	ErrCommandNotFound int = iota + 103000
	// ErrCommandKindInvalid - 400: 命令类型无效.
	ErrCommandKindInvalid
	// ErrCommandUnsupported - 400: 该传输方式不支持此命令.
	ErrCommandUnsupported
)

// 同步相关错误码 (104xxx).
const (
	// ErrSyncFailed - 500: 同步失败.
	ErrSyncFailed int = iota + 104000
	// ErrSyncLogNotFound - 404: 同步记录不存在.
	ErrSyncLogNotFound
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)

// 考勤相关错误码 (106xxx).
const (
	// ErrBatchInProgress - 409: 同一范围的批处理正在运行.
	ErrBatchInProgress int = iota + 106000
	// ErrDateRangeInvalid - 400: 日期范围无效.
	ErrDateRangeInvalid
	// ErrBatchFailed - 500: 批处理失败.
	ErrBatchFailed
)

// 考勤规则配置错误码 (107xxx).
const (
	// ErrConfigNotFound - 404: 配置不存在.
	ErrConfigNotFound int = iota + 107000
	// ErrConfigInvalid - 400: 配置无效.
	ErrConfigInvalid
)
