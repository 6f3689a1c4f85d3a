package controllers

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/rules"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceRuleConfigController 考勤规则配置控制器接口
type InterfaceRuleConfigController interface {
	ListConfigs()
	GetConfig()
	CreateConfig()
	ActivateConfig()
	ImportConfig()
}

// RuleConfigController 考勤规则配置控制器
type RuleConfigController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewRuleConfigController 创建考勤规则配置控制器
func NewRuleConfigController(ctx *gin.Context, container *container.ServiceContainer) *RuleConfigController {
	return &RuleConfigController{
		Ctx:       ctx,
		Container: container,
	}
}

// CreateConfigRequest 创建规则配置，config 中未给出的字段取默认值
type CreateConfigRequest struct {
	Scope    string       `json:"scope" example:"default"`
	Name     string       `json:"name" binding:"required" example:"Factory 2024"`
	Activate bool         `json:"activate" example:"false"`
	Config   rules.Config `json:"config"`
}

// RuleConfigView 规则配置及解析后的规则
type RuleConfigView struct {
	models.AttendanceConfig
	Rules rules.Config `json:"rules"`
}

// HandleRuleConfigFunc 返回处理规则配置请求的Gin处理函数
func HandleRuleConfigFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewRuleConfigController(ctx, container)

		switch method {
		case "listConfigs":
			controller.ListConfigs()
		case "getConfig":
			controller.GetConfig()
		case "createConfig":
			controller.CreateConfig()
		case "activateConfig":
			controller.ActivateConfig()
		case "importConfig":
			controller.ImportConfig()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *RuleConfigController) service() services.InterfaceRuleConfigService {
	return c.Container.GetService("rule_config").(services.InterfaceRuleConfigService)
}

// 1. ListConfigs 规则配置列表
// @Summary      规则配置列表
// @Tags         RuleConfig
// @Produce      json
// @Param        scope query string false "范围，为空时列出全部"
// @Success      200  {array}  models.AttendanceConfig
// @Router       /rule-configs [get]
// @Security     BearerAuth
func (c *RuleConfigController) ListConfigs() {
	rows, err := c.service().List(c.Ctx.Request.Context(), c.Ctx.Query("scope"))
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, rows)
}

// 2. GetConfig 规则配置详情
// @Summary      规则配置详情
// @Tags         RuleConfig
// @Produce      json
// @Param        id path int true "配置ID"
// @Success      200  {object}  RuleConfigView
// @Failure      404  {object}  ErrorResponse
// @Router       /rule-configs/{id} [get]
// @Security     BearerAuth
func (c *RuleConfigController) GetConfig() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	row, err := c.service().Get(c.Ctx.Request.Context(), id)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, RuleConfigView{AttendanceConfig: *row, Rules: rules.FromModel(row)})
}

// 3. CreateConfig 创建规则配置
// @Summary      创建规则配置
// @Tags         RuleConfig
// @Accept       json
// @Produce      json
// @Param        request body CreateConfigRequest true "规则配置"
// @Success      200  {object}  models.AttendanceConfig
// @Failure      400  {object}  ErrorResponse
// @Router       /rule-configs [post]
// @Security     BearerAuth
func (c *RuleConfigController) CreateConfig() {
	req := CreateConfigRequest{Config: rules.DefaultConfig()}
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	svc := c.service()
	row, err := svc.Create(c.Ctx.Request.Context(), req.Scope, req.Name, req.Config)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	if req.Activate {
		if row, err = svc.Activate(c.Ctx.Request.Context(), row.ID); err != nil {
			failWithError(c.Ctx, err)
			return
		}
	}
	response.Success(c.Ctx, row)
}

// 4. ActivateConfig 启用规则配置
// @Summary      启用规则配置
// @Description  同一范围内其他配置自动停用
// @Tags         RuleConfig
// @Produce      json
// @Param        id path int true "配置ID"
// @Success      200  {object}  models.AttendanceConfig
// @Failure      404  {object}  ErrorResponse
// @Router       /rule-configs/{id}/activate [post]
// @Security     BearerAuth
func (c *RuleConfigController) ActivateConfig() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	row, err := c.service().Activate(c.Ctx.Request.Context(), id)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, row)
}

// 5. ImportConfig 导入 YAML 规则文件
// @Summary      导入规则文件
// @Description  上传 multipart 字段 file，或直接以 YAML 作为请求体
// @Tags         RuleConfig
// @Accept       mpfd
// @Produce      json
// @Param        scope query string false "范围"
// @Param        activate query bool false "导入后立即启用"
// @Param        file formData file false "YAML 规则文件"
// @Success      200  {object}  models.AttendanceConfig
// @Failure      400  {object}  ErrorResponse
// @Router       /rule-configs/import [post]
// @Security     BearerAuth
func (c *RuleConfigController) ImportConfig() {
	activate, _ := strconv.ParseBool(c.Ctx.DefaultQuery("activate", "false"))

	var reader io.Reader = c.Ctx.Request.Body
	if fh, err := c.Ctx.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.FailWithMessage(c.Ctx, code.ErrBind, "无法读取上传文件: "+err.Error(), nil)
			return
		}
		defer f.Close()
		reader = f
	}

	row, err := c.service().ImportYAML(c.Ctx.Request.Context(), reader, c.Ctx.Query("scope"), activate)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, row)
}
