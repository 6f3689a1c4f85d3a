package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceOvertimeController 加班控制器接口
type InterfaceOvertimeController interface {
	GenerateOvertime()
	ListOvertime()
}

// OvertimeController 加班控制器
type OvertimeController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewOvertimeController 创建加班控制器
func NewOvertimeController(ctx *gin.Context, container *container.ServiceContainer) *OvertimeController {
	return &OvertimeController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleOvertimeFunc 返回处理加班请求的Gin处理函数
func HandleOvertimeFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewOvertimeController(ctx, container)

		switch method {
		case "generateOvertime":
			controller.GenerateOvertime()
		case "listOvertime":
			controller.ListOvertime()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *OvertimeController) service() services.InterfaceOvertimeService {
	return c.Container.GetService("overtime").(services.InterfaceOvertimeService)
}

// 1. GenerateOvertime 由考勤记录生成加班
// @Summary      生成加班记录
// @Description  对加班时长大于0的考勤记录分类(节假日/周末/夜班/平时)并计算金额
// @Tags         Overtime
// @Accept       json
// @Produce      json
// @Param        request body GenerateRequest true "批处理范围"
// @Success      200  {object}  services.BatchResult
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /overtime/generate [post]
// @Security     BearerAuth
func (c *OvertimeController) GenerateOvertime() {
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

// 2. ListOvertime 加班记录列表
// @Summary      加班记录列表
// @Tags         Overtime
// @Produce      json
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Param        scope query string false "范围"
// @Param        subject_id query string false "工号"
// @Param        type query string false "regular/weekend/holiday/night"
// @Param        from query string false "开始日期 YYYY-MM-DD"
// @Param        to query string false "结束日期 YYYY-MM-DD"
// @Success      200  {object}  map[string]interface{}
// @Router       /overtime [get]
// @Security     BearerAuth
func (c *OvertimeController) ListOvertime() {
	var filter services.OvertimeFilter
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
