package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceCommandController 命令控制器接口
type InterfaceCommandController interface {
	EnqueueCommand()
	BulkEnqueue()
	ListCommands()
	GetCommand()
}

// CommandController 命令控制器
type CommandController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewCommandController 创建命令控制器
func NewCommandController(ctx *gin.Context, container *container.ServiceContainer) *CommandController {
	return &CommandController{
		Ctx:       ctx,
		Container: container,
	}
}

// EnqueueCommandRequest 下发命令
type EnqueueCommandRequest struct {
	Kind    string `json:"kind" binding:"required" example:"reboot"`
	Content string `json:"content" example:""`
}

// BulkCommandRequest 批量下发命令
type BulkCommandRequest struct {
	DeviceIDs []uint `json:"device_ids" binding:"required,min=1" example:"1,2"`
	Kind      string `json:"kind" binding:"required" example:"sync_time"`
	Content   string `json:"content" example:""`
}

// HandleCommandFunc 返回处理命令请求的Gin处理函数
func HandleCommandFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewCommandController(ctx, container)

		switch method {
		case "enqueueCommand":
			controller.EnqueueCommand()
		case "bulkEnqueue":
			controller.BulkEnqueue()
		case "listCommands":
			controller.ListCommands()
		case "getCommand":
			controller.GetCommand()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *CommandController) service() services.InterfaceCommandService {
	return c.Container.GetService("command").(services.InterfaceCommandService)
}

// 1. EnqueueCommand 向单台设备下发命令
// @Summary      下发命令
// @Description  命令进入队列，设备下次轮询时取走
// @Tags         Command
// @Accept       json
// @Produce      json
// @Param        id path int true "设备ID"
// @Param        request body EnqueueCommandRequest true "命令"
// @Success      200  {object}  models.Command
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /devices/{id}/commands [post]
// @Security     BearerAuth
func (c *CommandController) EnqueueCommand() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req EnqueueCommandRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	cmd, err := c.service().Enqueue(c.Ctx.Request.Context(), id, models.CommandKind(req.Kind), req.Content)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, cmd)
}

// 2. BulkEnqueue 向多台设备下发同一命令
// @Summary      批量下发命令
// @Description  逐台入队，单台失败不影响其他设备
// @Tags         Command
// @Accept       json
// @Produce      json
// @Param        request body BulkCommandRequest true "命令"
// @Success      200  {object}  services.BulkResult
// @Failure      400  {object}  ErrorResponse
// @Router       /commands/bulk [post]
// @Security     BearerAuth
func (c *CommandController) BulkEnqueue() {
	var req BulkCommandRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	kind := models.CommandKind(req.Kind)
	if !kind.Valid() {
		failWithError(c.Ctx, services.ErrCommandKindInvalid)
		return
	}
	result := c.service().BulkEnqueue(c.Ctx.Request.Context(), req.DeviceIDs, kind, req.Content)
	response.Success(c.Ctx, result)
}

// 3. ListCommands 命令列表
// @Summary      命令列表
// @Tags         Command
// @Produce      json
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Param        device_id query int false "设备ID"
// @Param        status query string false "pending/sent/executed/failed/timeout"
// @Param        kind query string false "命令类型"
// @Success      200  {object}  map[string]interface{}
// @Router       /commands [get]
// @Security     BearerAuth
func (c *CommandController) ListCommands() {
	var filter services.CommandFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的查询参数: "+err.Error(), nil)
		return
	}
	filter.Normalize()

	cmds, total, err := c.service().List(c.Ctx.Request.Context(), filter)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, pageData(cmds, total, filter.PageNum, filter.PageSize))
}

// 4. GetCommand 命令详情
// @Summary      命令详情
// @Tags         Command
// @Produce      json
// @Param        id path int true "命令ID"
// @Success      200  {object}  models.Command
// @Failure      404  {object}  ErrorResponse
// @Router       /commands/{id} [get]
// @Security     BearerAuth
func (c *CommandController) GetCommand() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	cmd, err := c.service().Get(c.Ctx.Request.Context(), id)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, cmd)
}
