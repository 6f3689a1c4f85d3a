package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceDeviceController 设备控制器接口
type InterfaceDeviceController interface {
	ListDevices()
	GetDevice()
	RegisterDevice()
	UpdateDevice()
	DeactivateDevice()
	GetHeartbeats()
	GetDeviceUsers()
	GetDeviceOperations()
}

// DeviceController 设备控制器
type DeviceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDeviceController 创建设备控制器
func NewDeviceController(ctx *gin.Context, container *container.ServiceContainer) *DeviceController {
	return &DeviceController{
		Ctx:       ctx,
		Container: container,
	}
}

// RegisterDeviceRequest 手动登记设备
type RegisterDeviceRequest struct {
	SerialNumber   string `json:"serial_number" binding:"required" example:"CQUJ232460123"`
	Name           string `json:"name" example:"Main Gate"`
	ConnectionType string `json:"connection_type" binding:"omitempty,oneof=adms tcp both" example:"adms"`
	Scope          string `json:"scope" example:"default"`
	IPAddress      string `json:"ip_address" binding:"omitempty,ip" example:"192.168.1.201"`
	Port           int    `json:"port" binding:"omitempty,min=1,max=65535" example:"4370"`
	CommKey        int    `json:"comm_key" example:"0"`
	TimeoutSeconds int    `json:"tcp_timeout_seconds" binding:"omitempty,min=1,max=120" example:"5"`
}

// UpdateDeviceRequest 更新设备
type UpdateDeviceRequest struct {
	Name           *string `json:"name" example:"Main Gate"`
	ConnectionType *string `json:"connection_type" binding:"omitempty,oneof=adms tcp both" example:"both"`
	Scope          *string `json:"scope" example:"default"`
	IPAddress      *string `json:"ip_address" binding:"omitempty,ip" example:"192.168.1.201"`
	Port           *int    `json:"port" binding:"omitempty,min=1,max=65535" example:"4370"`
	CommKey        *int    `json:"comm_key" example:"0"`
	TimeoutSeconds *int    `json:"tcp_timeout_seconds" binding:"omitempty,min=1,max=120" example:"5"`
	IsActive       *bool   `json:"is_active" example:"true"`
}

// DeviceView 设备及其在线状态
type DeviceView struct {
	models.Device
	Online bool `json:"online"`
}

// HandleDeviceFunc 返回处理设备请求的Gin处理函数
func HandleDeviceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDeviceController(ctx, container)

		switch method {
		case "listDevices":
			controller.ListDevices()
		case "getDevice":
			controller.GetDevice()
		case "registerDevice":
			controller.RegisterDevice()
		case "updateDevice":
			controller.UpdateDevice()
		case "deactivateDevice":
			controller.DeactivateDevice()
		case "getHeartbeats":
			controller.GetHeartbeats()
		case "getDeviceUsers":
			controller.GetDeviceUsers()
		case "getDeviceOperations":
			controller.GetDeviceOperations()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *DeviceController) registry() services.InterfaceRegistryService {
	return c.Container.GetService("registry").(services.InterfaceRegistryService)
}

func (c *DeviceController) directory() services.InterfaceDirectoryService {
	return c.Container.GetService("directory").(services.InterfaceDirectoryService)
}

func (c *DeviceController) view(d models.Device) DeviceView {
	return DeviceView{Device: d, Online: c.registry().IsOnline(&d)}
}

// 1. ListDevices 获取设备列表
// @Summary      获取设备列表
// @Tags         Device
// @Produce      json
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Param        scope query string false "所属范围"
// @Param        connection_type query string false "连接方式 adms/tcp/both"
// @Param        active query bool false "是否启用"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /devices [get]
// @Security     BearerAuth
func (c *DeviceController) ListDevices() {
	var filter services.DeviceFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的查询参数: "+err.Error(), nil)
		return
	}
	filter.Normalize()

	devices, total, err := c.registry().List(filter)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, c.view(d))
	}
	response.Success(c.Ctx, pageData(views, total, filter.PageNum, filter.PageSize))
}

// 2. GetDevice 获取设备详情
// @Summary      获取设备详情
// @Tags         Device
// @Produce      json
// @Param        id path int true "设备ID"
// @Success      200  {object}  DeviceView
// @Failure      404  {object}  ErrorResponse
// @Router       /devices/{id} [get]
// @Security     BearerAuth
func (c *DeviceController) GetDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	device, err := c.registry().GetByID(id)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, c.view(*device))
}

// 3. RegisterDevice 手动登记设备
// @Summary      登记设备
// @Description  TCP 拉取设备必须先登记；ADMS 设备首次连接会自动登记
// @Tags         Device
// @Accept       json
// @Produce      json
// @Param        request body RegisterDeviceRequest true "设备信息"
// @Success      200  {object}  models.Device
// @Failure      400  {object}  ErrorResponse
// @Router       /devices [post]
// @Security     BearerAuth
func (c *DeviceController) RegisterDevice() {
	var req RegisterDeviceRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	device := &models.Device{
		SerialNumber:      strings.TrimSpace(req.SerialNumber),
		Name:              req.Name,
		ConnectionType:    models.ConnectionType(req.ConnectionType),
		Scope:             req.Scope,
		IPAddress:         req.IPAddress,
		Port:              req.Port,
		CommKey:           req.CommKey,
		TCPTimeoutSeconds: req.TimeoutSeconds,
		IsActive:          true,
	}
	if device.ConnectionType == "" {
		device.ConnectionType = models.ConnectionPush
	}
	if device.ConnectionType != models.ConnectionPush && device.IPAddress == "" {
		response.ParamError(c.Ctx, "TCP 拉取设备必须提供 IP 地址")
		return
	}
	if err := c.registry().Register(device); err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, device)
}

// 4. UpdateDevice 更新设备
// @Summary      更新设备
// @Tags         Device
// @Accept       json
// @Produce      json
// @Param        id path int true "设备ID"
// @Param        request body UpdateDeviceRequest true "更新字段"
// @Success      200  {object}  models.Device
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /devices/{id} [put]
// @Security     BearerAuth
func (c *DeviceController) UpdateDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req UpdateDeviceRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ConnectionType != nil {
		updates["connection_type"] = *req.ConnectionType
	}
	if req.Scope != nil {
		updates["scope"] = *req.Scope
	}
	if req.IPAddress != nil {
		updates["ip_address"] = *req.IPAddress
	}
	if req.Port != nil {
		updates["port"] = *req.Port
	}
	if req.CommKey != nil {
		updates["comm_key"] = *req.CommKey
	}
	if req.TimeoutSeconds != nil {
		updates["tcp_timeout_seconds"] = *req.TimeoutSeconds
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		response.ParamError(c.Ctx, "没有需要更新的字段")
		return
	}

	device, err := c.registry().Update(id, updates)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, device)
}

// 5. DeactivateDevice 停用设备
// @Summary      停用设备
// @Description  停用后设备连接只收到空闲应答，历史数据保留
// @Tags         Device
// @Produce      json
// @Param        id path int true "设备ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /devices/{id} [delete]
// @Security     BearerAuth
func (c *DeviceController) DeactivateDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.registry().Deactivate(id); err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6. GetHeartbeats 设备心跳记录
// @Summary      设备心跳记录
// @Tags         Device
// @Produce      json
// @Param        id path int true "设备ID"
// @Param        limit query int false "条数，默认50"
// @Success      200  {array}  models.DeviceHeartbeat
// @Failure      404  {object}  ErrorResponse
// @Router       /devices/{id}/heartbeats [get]
// @Security     BearerAuth
func (c *DeviceController) GetHeartbeats() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.Ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	beats, err := c.registry().Heartbeats(id, limit)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, beats)
}

// 7. GetDeviceUsers 设备上的用户
// @Summary      设备用户
// @Tags         Device
// @Produce      json
// @Param        id path int true "设备ID"
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /devices/{id}/users [get]
// @Security     BearerAuth
func (c *DeviceController) GetDeviceUsers() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var page models.PaginationQuery
	_ = c.Ctx.ShouldBindQuery(&page)
	page.Normalize()

	users, total, err := c.directory().ListUsers(c.Ctx.Request.Context(), id, page)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, pageData(users, total, page.PageNum, page.PageSize))
}

// 8. GetDeviceOperations 设备操作日志
// @Summary      设备操作日志
// @Tags         Device
// @Produce      json
// @Param        id path int true "设备ID"
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /devices/{id}/operations [get]
// @Security     BearerAuth
func (c *DeviceController) GetDeviceOperations() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var page models.PaginationQuery
	_ = c.Ctx.ShouldBindQuery(&page)
	page.Normalize()

	ops, total, err := c.directory().ListOperations(c.Ctx.Request.Context(), id, page)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, pageData(ops, total, page.PageNum, page.PageSize))
}
