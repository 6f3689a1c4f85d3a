// @title           HRM Attendance Service API
// @version         1.0
// @description     Biometric device gateway (ADMS push and TCP pull), punch ledger, command queue and attendance rule engine

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oleeahmmed/hrm/internal/app/routes"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	"github.com/oleeahmmed/hrm/internal/infrastructure/database"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

func main() {
	// 初始化日志配置
	if err := Logger.SetupLogger(); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		Logger.Warning("无法加载.env文件: %v", err)
	} else {
		Logger.Info("成功加载.env文件")
	}

	// 获取配置
	cfg := config.GetConfig()
	Logger.EnableDebug(cfg.EnvType == "LOCAL")

	// 创建数据库连接池
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		Logger.Error("无法创建数据库连接池: %v", err)
		os.Exit(1)
	}
	db := pool.GetDB()
	defer pool.Close()

	if err := database.Migrate(db, cfg.DBMigrationMode); err != nil {
		Logger.Error("数据库迁移失败: %v", err)
		os.Exit(1)
	}

	serviceContainer := container.NewServiceContainer(db, cfg)

	// 确保系统中有管理员账户
	admins := serviceContainer.GetService("admin").(services.InterfaceAdminService)
	if err := admins.EnsureDefaultAdmin(); err != nil {
		Logger.Error("创建默认管理员失败: %v", err)
		os.Exit(1)
	}

	// MQTT 连接失败不影响启动，事件只写日志
	notifier := serviceContainer.GetService("notifier").(services.InterfaceNotifierService)
	if cfg.MQTTEnabled {
		if err := notifier.Connect(); err != nil {
			Logger.Warning("MQTT连接失败: %v", err)
		}
	}
	defer notifier.Disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepCommands(ctx, serviceContainer, cfg)

	r := routes.SetupRouter(serviceContainer)
	printSystemInfo(pool)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		Logger.Info("服务器启动在: http://0.0.0.0:%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("启动服务器失败: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	Logger.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Logger.Error("关闭服务器失败: %v", err)
	}
}

// sweepCommands 定期把超时未回执的命令标记为 timeout
func sweepCommands(ctx context.Context, c *container.ServiceContainer, cfg *config.Config) {
	commands := c.GetService("command").(services.InterfaceCommandService)
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := commands.ExpireStale(ctx, cfg.CommandTimeout)
			if err != nil {
				Logger.Error("[COMMAND] 超时清理失败: %v", err)
				continue
			}
			if n > 0 {
				Logger.Info("[COMMAND] %d 条命令超时", n)
			}
		}
	}
}

// printSystemInfo 打印系统信息
func printSystemInfo(pool *database.ConnectionPool) {
	stats, err := pool.Stats()
	if err == nil {
		Logger.Info("数据库连接池状态: %+v", stats)
	}
	Logger.Info("系统CPU核心数: %d, 当前Go协程数: %d", runtime.NumCPU(), runtime.NumGoroutine())
}
