package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// PunchController 打卡流水控制器
type PunchController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewPunchController 创建打卡流水控制器
func NewPunchController(ctx *gin.Context, container *container.ServiceContainer) *PunchController {
	return &PunchController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandlePunchFunc 返回处理打卡查询的Gin处理函数
func HandlePunchFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewPunchController(ctx, container)

		switch method {
		case "listPunches":
			controller.ListPunches()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// ListPunches 打卡流水列表
// @Summary      打卡流水
// @Tags         Punch
// @Produce      json
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Param        device_id query int false "设备ID"
// @Param        subject_id query string false "工号"
// @Param        from query string false "开始日期 YYYY-MM-DD"
// @Param        to query string false "结束日期 YYYY-MM-DD (包含)"
// @Success      200  {object}  map[string]interface{}
// @Router       /punches [get]
// @Security     BearerAuth
func (c *PunchController) ListPunches() {
	var filter services.PunchFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的查询参数: "+err.Error(), nil)
		return
	}
	filter.Normalize()

	ledger := c.Container.GetService("ledger").(services.InterfaceLedgerService)
	punches, total, err := ledger.ListPunches(c.Ctx.Request.Context(), filter)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, pageData(punches, total, filter.PageNum, filter.PageSize))
}
