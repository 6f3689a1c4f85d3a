package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceAdminController 定义管理员控制器接口
type InterfaceAdminController interface {
	GetAdmins()
	GetAdmin()
	CreateAdmin()
	UpdateAdmin()
	DeleteAdmin()
}

// AdminController 管理员控制器
type AdminController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAdminController 创建一个新的管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{
		Ctx:       ctx,
		Container: container,
	}
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required" example:"operator1"`
	Password string `json:"password" binding:"required,min=6" example:"Operator@123"`
	Email    string `json:"email" binding:"omitempty,email" example:"ops@example.com"`
	Role     string `json:"role" binding:"omitempty,oneof=admin operator" example:"operator"`
}

// UpdateAdminRequest 更新管理员请求
type UpdateAdminRequest struct {
	Email    string `json:"email" binding:"omitempty,email" example:"ops@example.com"`
	Password string `json:"password" binding:"omitempty,min=6" example:"NewPassword@123"`
	Role     string `json:"role" binding:"omitempty,oneof=admin operator" example:"operator"`
	Status   string `json:"status" binding:"omitempty,oneof=active inactive locked" example:"active"`
}

// HandleAdminFunc 返回一个处理管理员请求的Gin处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "getAdmins":
			controller.GetAdmins()
		case "getAdmin":
			controller.GetAdmin()
		case "createAdmin":
			controller.CreateAdmin()
		case "updateAdmin":
			controller.UpdateAdmin()
		case "deleteAdmin":
			controller.DeleteAdmin()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *AdminController) service() services.InterfaceAdminService {
	return c.Container.GetService("admin").(services.InterfaceAdminService)
}

// 1. GetAdmins 获取管理员列表
// @Summary      获取管理员列表
// @Tags         Admin
// @Produce      json
// @Param        pageNum query int false "页码, 默认为1"
// @Param        pageSize query int false "每页条数, 默认为20"
// @Param        search query string false "搜索关键词(用户名、邮箱)"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /admins [get]
// @Security     BearerAuth
func (c *AdminController) GetAdmins() {
	var page models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&page); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的分页参数", nil)
		return
	}
	page.Normalize()

	admins, total, err := c.service().GetAllAdmins(page, c.Ctx.Query("search"))
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询管理员列表失败: "+err.Error(), nil)
		return
	}
	response.Success(c.Ctx, pageData(admins, total, page.PageNum, page.PageSize))
}

// 2. GetAdmin 获取管理员详情
// @Summary      获取管理员详情
// @Tags         Admin
// @Produce      json
// @Param        id path int true "管理员ID"
// @Success      200  {object}  models.Admin
// @Failure      404  {object}  ErrorResponse
// @Router       /admins/{id} [get]
// @Security     BearerAuth
func (c *AdminController) GetAdmin() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	admin, err := c.service().GetAdminByID(id)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, admin)
}

// 3. CreateAdmin 创建管理员
// @Summary      创建管理员
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body CreateAdminRequest true "管理员信息"
// @Success      200  {object}  models.Admin
// @Failure      400  {object}  ErrorResponse
// @Router       /admins [post]
// @Security     BearerAuth
func (c *AdminController) CreateAdmin() {
	var req CreateAdminRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	role := req.Role
	if role == "" {
		role = "operator"
	}
	admin := &models.Admin{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password, // 密码加密在 Service 层处理
		Email:    strings.TrimSpace(req.Email),
		Role:     role,
		Status:   "active",
	}
	if err := c.service().CreateAdmin(admin); err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, admin)
}

// 4. UpdateAdmin 更新管理员
// @Summary      更新管理员
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path int true "管理员ID"
// @Param        request body UpdateAdminRequest true "更新的管理员信息"
// @Success      200  {object}  models.Admin
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admins/{id} [put]
// @Security     BearerAuth
func (c *AdminController) UpdateAdmin() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req UpdateAdminRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Email != "" {
		updates["email"] = strings.TrimSpace(req.Email)
	}
	if req.Password != "" {
		updates["password"] = req.Password
	}
	if req.Role != "" {
		updates["role"] = req.Role
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	admin, err := c.service().UpdateAdmin(id, updates)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, admin)
}

// 5. DeleteAdmin 删除管理员
// @Summary      删除管理员
// @Tags         Admin
// @Produce      json
// @Param        id path int true "管理员ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admins/{id} [delete]
// @Security     BearerAuth
func (c *AdminController) DeleteAdmin() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteAdmin(id); err != nil {
		if err == services.ErrAdminNotFound {
			failWithError(c.Ctx, err)
			return
		}
		response.FailWithMessage(c.Ctx, code.ErrValidation, err.Error(), nil)
		return
	}
	response.Success(c.Ctx, nil)
}
