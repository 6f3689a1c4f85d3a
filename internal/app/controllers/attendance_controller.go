package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceAttendanceController 考勤控制器接口
type InterfaceAttendanceController interface {
	GenerateAttendance()
	ListAttendance()
}

// AttendanceController 考勤控制器
type AttendanceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAttendanceController 创建考勤控制器
func NewAttendanceController(ctx *gin.Context, container *container.ServiceContainer) *AttendanceController {
	return &AttendanceController{
		Ctx:       ctx,
		Container: container,
	}
}

// GenerateRequest 批处理请求。给出 days 时忽略 start_date/end_date：
// 0 为今天，N 为最近 N 天，-1 为全部数据
type GenerateRequest struct {
	Scope     string `json:"scope" example:"default"`
	StartDate string `json:"start_date" example:"2024-05-01"`
	EndDate   string `json:"end_date" example:"2024-05-31"`
	Days      *int   `json:"days" example:"7"`
}

// toService 解析日期字符串，失败时直接写出错误响应
func (r GenerateRequest) toService(ctx *gin.Context) (services.GenerateRequest, bool) {
	req := services.GenerateRequest{Scope: r.Scope, Days: r.Days}
	if r.Days != nil {
		return req, true
	}
	var err error
	if req.From, err = time.Parse("2006-01-02", r.StartDate); err != nil {
		response.ParamError(ctx, "start_date 格式应为 YYYY-MM-DD")
		return req, false
	}
	if req.To, err = time.Parse("2006-01-02", r.EndDate); err != nil {
		response.ParamError(ctx, "end_date 格式应为 YYYY-MM-DD")
		return req, false
	}
	return req, true
}

// bindGenerate 绑定批处理请求体
func bindGenerate(ctx *gin.Context) (services.GenerateRequest, bool) {
	var req GenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return services.GenerateRequest{}, false
	}
	return req.toService(ctx)
}

// HandleAttendanceFunc 返回处理考勤请求的Gin处理函数
func HandleAttendanceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAttendanceController(ctx, container)

		switch method {
		case "generateAttendance":
			controller.GenerateAttendance()
		case "listAttendance":
			controller.ListAttendance()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *AttendanceController) service() services.InterfaceAttendanceService {
	return c.Container.GetService("attendance").(services.InterfaceAttendanceService)
}

// 1. GenerateAttendance 生成考勤记录
// @Summary      生成考勤
// @Description  按当前启用的规则配置重算日期区间内的考勤，重复执行结果相同
// @Tags         Attendance
// @Accept       json
// @Produce      json
// @Param        request body GenerateRequest true "批处理范围"
// @Success      200  {object}  services.BatchResult
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /attendance/generate [post]
// @Security     BearerAuth
func (c *AttendanceController) GenerateAttendance() {
	req, ok := bindGenerate(c.Ctx)
	if !ok {
		return
	}
	result, err := c.service().Generate(c.Ctx.Request.Context(), req)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"result": result, "message": result.Message()})
}

// 2. ListAttendance 考勤记录列表
// @Summary      考勤记录列表
// @Tags         Attendance
// @Produce      json
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Param        scope query string false "范围"
// @Param        subject_id query string false "工号"
// @Param        status query string false "present/absent/half_day/leave/holiday/weekend"
// @Param        from query string false "开始日期 YYYY-MM-DD"
// @Param        to query string false "结束日期 YYYY-MM-DD"
// @Success      200  {object}  map[string]interface{}
// @Router       /attendance [get]
// @Security     BearerAuth
func (c *AttendanceController) ListAttendance() {
	var filter services.AttendanceFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的查询参数: "+err.Error(), nil)
		return
	}
	filter.Normalize()

	records, total, err := c.service().List(c.Ctx.Request.Context(), filter)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, pageData(records, total, filter.PageNum, filter.PageSize))
}
