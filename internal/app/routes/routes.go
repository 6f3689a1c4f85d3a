package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/oleeahmmed/hrm/docs"
	"github.com/oleeahmmed/hrm/internal/app/controllers"
	"github.com/oleeahmmed/hrm/internal/app/middleware"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer) *gin.Engine {
	// 初始化 Gin
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 初始化中间件
	middleware.InitAuthMiddleware(serviceContainer.GetService("jwt").(services.InterfaceJWTService))
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 注册路由
	registerDeviceRoutes(r, serviceContainer)
	registerRoutes(r, serviceContainer)
	return r
}

// registerDeviceRoutes 考勤机推送协议路由，设备不携带令牌，也不限流
func registerDeviceRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	for _, prefix := range []string{"/iclock", ""} {
		g := r.Group(prefix)
		g.GET("/cdata", controllers.HandleADMSFunc(container, "cdata"))
		g.POST("/cdata", controllers.HandleADMSFunc(container, "cdata"))
		g.GET("/getrequest", controllers.HandleADMSFunc(container, "getRequest"))
		g.POST("/devicecmd", controllers.HandleADMSFunc(container, "deviceCmd"))
	}
	// 部分固件使用 .aspx 后缀
	r.GET("/iclock/cdata.aspx", controllers.HandleADMSFunc(container, "cdata"))
	r.POST("/iclock/cdata.aspx", controllers.HandleADMSFunc(container, "cdata"))
	r.GET("/iclock/getrequest.aspx", controllers.HandleADMSFunc(container, "getRequest"))
	r.POST("/iclock/devicecmd.aspx", controllers.HandleADMSFunc(container, "deviceCmd"))

	// 新协议推送别名
	push := r.Group("/iclockpush")
	push.GET("/handshake", controllers.HandleADMSFunc(container, "handshake"))
	push.POST("/upload", controllers.HandleADMSFunc(container, "upload"))
	push.GET("/getrequest", controllers.HandleADMSFunc(container, "getRequest"))
	push.POST("/devicecmd", controllers.HandleADMSFunc(container, "deviceCmd"))
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 设置正确的Content-Type，确保UTF-8编码
	api.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 添加IP限流中间件 - 每秒允许10个请求，最多突发20个请求
	public := api.Group("")
	public.Use(middleware.IPRateLimiter(10, 20))

	// 健康检查路由
	public.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	public.GET("/health", controllers.HandleHealthFunc(container, "ping"))
	public.GET("/health/status", controllers.HandleHealthFunc(container, "status"))

	// 认证路由
	public.POST("/auth/login", controllers.HandleJWTFunc(container, "login"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 操作员和管理员都可访问
	auth := api.Group("")
	auth.Use(middleware.AuthenticateOperator())

	// 添加通用限流中间件 - 每秒30个请求，最多突发50个请求
	auth.Use(middleware.IPRateLimiter(30, 50))

	auth.GET("/auth/me", controllers.HandleJWTFunc(container, "me"))

	// 设备路由
	devicesGroup := auth.Group("/devices")
	{
		devicesGroup.GET("", controllers.HandleDeviceFunc(container, "listDevices"))
		devicesGroup.GET("/:id", controllers.HandleDeviceFunc(container, "getDevice"))
		devicesGroup.POST("", controllers.HandleDeviceFunc(container, "registerDevice"))
		devicesGroup.PUT("/:id", controllers.HandleDeviceFunc(container, "updateDevice"))
		devicesGroup.DELETE("/:id", controllers.HandleDeviceFunc(container, "deactivateDevice"))
		devicesGroup.GET("/:id/heartbeats", controllers.HandleDeviceFunc(container, "getHeartbeats"))
		devicesGroup.GET("/:id/users", controllers.HandleDeviceFunc(container, "getDeviceUsers"))
		devicesGroup.GET("/:id/operations", controllers.HandleDeviceFunc(container, "getDeviceOperations"))
		devicesGroup.POST("/:id/commands", controllers.HandleCommandFunc(container, "enqueueCommand"))
		devicesGroup.POST("/:id/sync", controllers.HandleSyncFunc(container, "startSync"))
	}

	// 命令路由
	commandsGroup := auth.Group("/commands")
	commandsGroup.GET("", controllers.HandleCommandFunc(container, "listCommands"))
	commandsGroup.GET("/:id", controllers.HandleCommandFunc(container, "getCommand"))
	commandsGroup.POST("/bulk", controllers.HandleCommandFunc(container, "bulkEnqueue"))

	// 拉取同步路由
	auth.POST("/sync", controllers.HandleSyncFunc(container, "syncAllDevices"))
	auth.GET("/sync-logs", controllers.HandleSyncFunc(container, "listSyncLogs"))
	auth.GET("/sync-logs/:id", controllers.HandleSyncFunc(container, "getSyncLog"))

	// 打卡流水
	auth.GET("/punches", controllers.HandlePunchFunc(container, "listPunches"))

	// 考勤与加班
	auth.GET("/attendance", controllers.HandleAttendanceFunc(container, "listAttendance"))
	auth.POST("/attendance/generate", controllers.HandleAttendanceFunc(container, "generateAttendance"))
	auth.GET("/overtime", controllers.HandleOvertimeFunc(container, "listOvertime"))
	auth.POST("/overtime/generate", controllers.HandleOvertimeFunc(container, "generateOvertime"))

	// 规则配置
	configGroup := auth.Group("/rule-configs")
	configGroup.GET("", controllers.HandleRuleConfigFunc(container, "listConfigs"))
	configGroup.GET("/:id", controllers.HandleRuleConfigFunc(container, "getConfig"))

	// 以下路由仅管理员可访问
	admin := api.Group("")
	admin.Use(middleware.AuthenticateSystemAdmin())
	admin.Use(middleware.IPRateLimiter(30, 50))

	adminConfigGroup := admin.Group("/rule-configs")
	adminConfigGroup.POST("", controllers.HandleRuleConfigFunc(container, "createConfig"))
	adminConfigGroup.POST("/import", controllers.HandleRuleConfigFunc(container, "importConfig"))
	adminConfigGroup.POST("/:id/activate", controllers.HandleRuleConfigFunc(container, "activateConfig"))

	adminGroup := admin.Group("/admins")
	adminGroup.GET("", controllers.HandleAdminFunc(container, "getAdmins"))
	adminGroup.GET("/:id", controllers.HandleAdminFunc(container, "getAdmin"))
	adminGroup.POST("", controllers.HandleAdminFunc(container, "createAdmin"))
	adminGroup.PUT("/:id", controllers.HandleAdminFunc(container, "updateAdmin"))
	adminGroup.DELETE("/:id", controllers.HandleAdminFunc(container, "deleteAdmin"))
}
