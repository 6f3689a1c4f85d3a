package container

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/zk"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	clock  clock.Clock
	dialer zk.Dialer

	// 基础服务
	redisService    services.InterfaceRedisService
	notifierService services.InterfaceNotifierService
	jwtService      services.InterfaceJWTService
	adminService    services.InterfaceAdminService

	// 设备接入
	registryService  services.InterfaceRegistryService
	ledgerService    services.InterfaceLedgerService
	directoryService services.InterfaceDirectoryService
	commandService   services.InterfaceCommandService
	gatewayService   services.InterfaceGatewayService
	pullSyncService  services.InterfacePullSyncService

	// 考勤计算
	ruleConfigService services.InterfaceRuleConfigService
	attendanceService services.InterfaceAttendanceService
	overtimeService   services.InterfaceOvertimeService

	mu sync.RWMutex
}

// Option 覆盖容器的默认依赖，测试使用
type Option func(*ServiceContainer)

// WithClock 替换时钟
func WithClock(clk clock.Clock) Option {
	return func(c *ServiceContainer) { c.clock = clk }
}

// WithDialer 替换 TCP 拉取的拨号器
func WithDialer(d zk.Dialer) Option {
	return func(c *ServiceContainer) { c.dialer = d }
}

// WithNotifier 替换事件发布
func WithNotifier(n services.InterfaceNotifierService) Option {
	return func(c *ServiceContainer) { c.notifierService = n }
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config, opts ...Option) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}
	if cfg == nil {
		panic("配置为空")
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		clock:  clock.Real(),
		dialer: zk.NetDialer{},
	}
	for _, opt := range opts {
		opt(container)
	}
	container.initializeServices()
	return container
}

// initializeRedis Redis 不可用时返回 nil，批处理锁退化为进程内锁
func (c *ServiceContainer) initializeRedis() services.InterfaceRedisService {
	if !c.config.RedisEnabled {
		return nil
	}
	redisService := services.NewRedisService(c.config)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisService.Ping(ctx); err != nil {
		Logger.Warning("Redis连接测试失败: %v，将不使用Redis", err)
		return nil
	}
	return redisService
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.redisService = c.initializeRedis()
	if c.notifierService == nil {
		c.notifierService = services.NewNotifierService(c.config)
	}
	c.jwtService = services.NewJWTService(c.config, c.db, c.clock)
	c.adminService = services.NewAdminService(c.db, c.config)

	c.registryService = services.NewRegistryService(c.db, c.config, c.clock, c.redisService, c.notifierService)
	c.ledgerService = services.NewLedgerService(c.db, c.config)
	c.directoryService = services.NewDirectoryService(c.db, c.config)
	c.commandService = services.NewCommandService(c.db, c.config, c.clock, c.notifierService)
	c.gatewayService = services.NewGatewayService(c.config, c.clock, c.registryService, c.ledgerService,
		c.directoryService, c.commandService, c.notifierService)
	c.pullSyncService = services.NewPullSyncService(c.db, c.config, c.clock, c.dialer, c.registryService,
		c.ledgerService, c.directoryService, c.notifierService)

	c.ruleConfigService = services.NewRuleConfigService(c.db, c.config)
	c.attendanceService = services.NewAttendanceService(c.db, c.config, c.clock, c.ruleConfigService,
		c.ledgerService, c.notifierService, c.redisService)
	c.overtimeService = services.NewOvertimeService(c.db, c.config, c.clock, c.ruleConfigService,
		c.notifierService, c.redisService)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "clock":
		return c.clock
	case "redis":
		return c.redisService
	case "notifier":
		return c.notifierService
	case "jwt":
		return c.jwtService
	case "admin":
		return c.adminService
	case "registry":
		return c.registryService
	case "ledger":
		return c.ledgerService
	case "directory":
		return c.directoryService
	case "command":
		return c.commandService
	case "gateway":
		return c.gatewayService
	case "pull_sync":
		return c.pullSyncService
	case "rule_config":
		return c.ruleConfigService
	case "attendance":
		return c.attendanceService
	case "overtime":
		return c.overtimeService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
