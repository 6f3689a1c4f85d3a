package controllers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// ErrorResponse 表示错误响应
type ErrorResponse struct {
	Code    int         `json:"code" example:"102000"`
	Message string      `json:"message" example:"设备不存在"`
	Data    interface{} `json:"data"`
}

// 业务错误到错误码的映射
var errorCodes = []struct {
	err  error
	code int
}{
	{services.ErrDeviceNotFound, code.ErrDeviceNotFound},
	{services.ErrDeviceAlreadyExist, code.ErrDeviceAlreadyExist},
	{services.ErrDeviceNoPull, code.ErrDeviceNoPull},
	{services.ErrCommandNotFound, code.ErrCommandNotFound},
	{services.ErrCommandKindInvalid, code.ErrCommandKindInvalid},
	{services.ErrCommandUnsupported, code.ErrCommandUnsupported},
	{services.ErrSyncLogNotFound, code.ErrSyncLogNotFound},
	{services.ErrBatchInProgress, code.ErrBatchInProgress},
	{services.ErrDateRangeInvalid, code.ErrDateRangeInvalid},
	{services.ErrConfigNotFound, code.ErrConfigNotFound},
	{services.ErrConfigInvalid, code.ErrConfigInvalid},
	{services.ErrAdminNotFound, code.ErrUserNotFound},
	{services.ErrAdminAlreadyExist, code.ErrUserAlreadyExist},
	{services.ErrInvalidCredentials, code.ErrUserPasswordIncorrect},
}

// failWithError 将服务层错误转换为统一响应，未知错误视为数据库错误
func failWithError(ctx *gin.Context, err error) {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			response.FailWithMessage(ctx, m.code, err.Error(), nil)
			return
		}
	}
	response.FailWithMessage(ctx, code.ErrDatabase, err.Error(), nil)
}

// paramID 读取路径中的数字ID
func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.ParamError(ctx, "无效的ID参数")
		return 0, false
	}
	return uint(id), true
}

// pageData 分页列表响应
func pageData(list interface{}, total int64, pageNum, pageSize int) gin.H {
	return gin.H{
		"list":       list,
		"pagination": gin.H{"total": total, "pageNum": pageNum, "pageSize": pageSize},
	}
}
