package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// InterfaceJWTController 操作员会话接口
type InterfaceJWTController interface {
	Login()
	Me()
}

// JWTController 操作员登录与当前会话
type JWTController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewJWTController 创建操作员会话控制器
func NewJWTController(ctx *gin.Context, container *container.ServiceContainer) *JWTController {
	return &JWTController{
		Ctx:       ctx,
		Container: container,
	}
}

// LoginRequest 操作员账号密码
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"Admin@123"`
}

// SessionInfo 当前令牌对应的操作员
type SessionInfo struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleJWTFunc 登录 (login) 与会话查询 (me)
func HandleJWTFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJWTController(ctx, container)

		switch method {
		case "login":
			controller.Login()
		case "me":
			controller.Me()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. Login 操作员登录
// @Summary      Operator Login
// @Description  admin 和 operator 角色都可以登录，令牌 24 小时有效，角色决定能否修改考勤规则和账号
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "账号密码"
// @Success      200  {object}  services.LoginResult
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Failure      401  {object}  ErrorResponse  "用户名或密码错误，或账号已停用"
// @Router       /auth/login [post]
func (c *JWTController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	result, err := jwtService.Login(req.Username, req.Password)
	if err != nil {
		failWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}

// 2. Me 当前操作员
// @Summary      Current Operator
// @Description  返回令牌中的操作员ID、用户名和角色
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SessionInfo
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/me [get]
func (c *JWTController) Me() {
	info := SessionInfo{
		AdminID:  c.Ctx.GetUint("adminID"),
		Username: c.Ctx.GetString("username"),
		Role:     c.Ctx.GetString("role"),
	}
	if info.Username == "" {
		response.Unauthorized(c.Ctx)
		return
	}
	response.Success(c.Ctx, info)
}
