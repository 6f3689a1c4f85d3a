package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// InterfaceSyncController 拉取同步控制器接口
type InterfaceSyncController interface {
	StartSync()
	SyncAllDevices()
	ListSyncLogs()
	GetSyncLog()
}

// SyncController 拉取同步控制器
type SyncController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewSyncController 创建拉取同步控制器
func NewSyncController(ctx *gin.Context, container *container.ServiceContainer) *SyncController {
	return &SyncController{
		Ctx:       ctx,
		Container: container,
	}
}

// StartSyncRequest 拉取同步请求
type StartSyncRequest struct {
	SyncType  string `json:"sync_type" binding:"required,oneof=users attendance command all" example:"attendance"`
	Days      *int   `json:"days" example:"7"`
	SubjectID string `json:"subject_id" example:""`
	Command   string `json:"command" example:"reboot"`
}

// SyncStarted 已受理的同步任务
type SyncStarted struct {
	SyncLogID uint   `json:"sync_log_id"`
	RunID     string `json:"run_id"`
	DeviceID  uint   `json:"device_id"`
}

// HandleSyncFunc 返回处理同步请求的Gin处理函数
func HandleSyncFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewSyncController(ctx, container)

		switch method {
		case "startSync":
			controller.StartSync()
		case "syncAllDevices":
			controller.SyncAllDevices()
		case "listSyncLogs":
			controller.ListSyncLogs()
		case "getSyncLog":
			controller.GetSyncLog()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *SyncController) service() services.InterfacePullSyncService {
	return c.Container.GetService("pull_sync").(services.InterfacePullSyncService)
}

// filter 把请求中的天数和工号换算成打卡过滤条件，未给天数时拉取全部
func (c *SyncController) filter(req StartSyncRequest) services.PunchFilter {
	var filter services.PunchFilter
	if req.Days != nil {
		now := c.Container.GetService("clock").(clock.Clock).Now()
		cfg := c.Container.GetService("config").(*config.Config)
		filter = services.SyncDays(*req.Days, now.In(cfg.Location()))
	}
	filter.SubjectID = req.SubjectID
	return filter
}

// launch 写入同步记录后在后台执行
func (c *SyncController) launch(deviceID uint, req StartSyncRequest) (*SyncStarted, error) {
	syncReq := services.SyncRequest{
		DeviceID: deviceID,
		Type:     models.SyncType(req.SyncType),
		Filter:   c.filter(req),
		Command:  models.CommandKind(req.Command),
	}
	svc := c.service()
	log, err := svc.Start(c.Ctx.Request.Context(), syncReq)
	if err != nil {
		return nil, err
	}
	go func() {
		result, err := svc.Run(context.Background(), log, syncReq)
		if err != nil {
			Logger.Warning("[SYNC] 设备 %d 同步 %s 失败: %v", deviceID, result.RunID, err)
		}
	}()
	return &SyncStarted{SyncLogID: log.ID, RunID: log.RunID, DeviceID: deviceID}, nil
}

// 1. StartSync 对单台设备发起拉取同步
// @Summary      发起拉取同步
// @Description  立即返回同步记录ID，同步在后台执行，结果通过同步记录查询
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Param        id path int true "设备ID"
// @Param        request body StartSyncRequest true "同步参数"
// @Success      202  {object}  SyncStarted
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /devices/{id}/sync [post]
// @Security     BearerAuth
func (c *SyncController) StartSync() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req StartSyncRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	started, err := c.launch(id, req)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Accepted(c.Ctx, started)
}

// 2. SyncAllDevices 对所有启用的拉取设备发起同步
// @Summary      同步全部拉取设备
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Param        request body StartSyncRequest true "同步参数"
// @Success      202  {object}  map[string]interface{}
// @Router       /sync [post]
// @Security     BearerAuth
func (c *SyncController) SyncAllDevices() {
	var req StartSyncRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	registry := c.Container.GetService("registry").(services.InterfaceRegistryService)
	active := true
	filter := services.DeviceFilter{Active: &active}
	filter.PageNum, filter.PageSize = 1, 200

	started := make([]SyncStarted, 0)
	failed := make(map[string]string)
	for {
		devices, total, err := registry.List(filter)
		if err != nil {
			failWithError(c.Ctx, err)
			return
		}
		for i := range devices {
			if !devices[i].SupportsPull() {
				continue
			}
			s, err := c.launch(devices[i].ID, req)
			if err != nil {
				failed[devices[i].SerialNumber] = err.Error()
				continue
			}
			started = append(started, *s)
		}
		if int64(filter.PageNum*filter.PageSize) >= total {
			break
		}
		filter.PageNum++
	}
	response.Accepted(c.Ctx, gin.H{"started": started, "failed": failed})
}

// 3. ListSyncLogs 同步记录列表
// @Summary      同步记录列表
// @Tags         Sync
// @Produce      json
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Param        device_id query int false "设备ID"
// @Param        status query string false "pending/running/completed/failed"
// @Success      200  {object}  map[string]interface{}
// @Router       /sync-logs [get]
// @Security     BearerAuth
func (c *SyncController) ListSyncLogs() {
	var filter services.SyncLogFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的查询参数: "+err.Error(), nil)
		return
	}
	filter.Normalize()

	logs, total, err := c.service().ListSyncLogs(c.Ctx.Request.Context(), filter)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, pageData(logs, total, filter.PageNum, filter.PageSize))
}

// 4. GetSyncLog 同步记录详情
// @Summary      同步记录详情
// @Tags         Sync
// @Produce      json
// @Param        id path int true "同步记录ID"
// @Success      200  {object}  models.SyncLog
// @Failure      404  {object}  ErrorResponse
// @Router       /sync-logs/{id} [get]
// @Security     BearerAuth
func (c *SyncController) GetSyncLog() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	log, err := c.service().GetSyncLog(c.Ctx.Request.Context(), id)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, log)
}
