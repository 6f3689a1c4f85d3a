package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// HealthController 健康检查控制器
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(ctx *gin.Context, container *container.ServiceContainer) *HealthController {
	return &HealthController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleHealthFunc 返回健康检查处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. Ping 健康检查端点
// @Summary      Ping
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /ping [get]
func (c *HealthController) Ping() {
	response.Success(c.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// 2. Status 依赖服务状态
// @Summary      服务状态
// @Description  数据库、Redis 和 MQTT 的连接状态
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health/status [get]
func (c *HealthController) Status() {
	ctx, cancel := context.WithTimeout(c.Ctx.Request.Context(), 3*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "disabled", "mqtt": "disabled"}

	db := c.Container.GetService("db").(*gorm.DB)
	if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "unavailable"
	}
	if redis, ok := c.Container.GetService("redis").(services.InterfaceRedisService); ok && redis != nil {
		status["redis"] = "ok"
		if err := redis.Ping(ctx); err != nil {
			status["redis"] = "unavailable"
		}
	}
	if notifier, ok := c.Container.GetService("notifier").(services.InterfaceNotifierService); ok && notifier.IsConnected() {
		status["mqtt"] = "connected"
	}
	response.Success(c.Ctx, status)
}
