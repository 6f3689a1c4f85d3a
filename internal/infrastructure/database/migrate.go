package database

import (
	"fmt"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	Logger "github.com/oleeahmmed/hrm/pkg/logger"

	"gorm.io/gorm"
)

// Models 需要迁移的全部模型，顺序即建表顺序
func Models() []interface{} {
	return []interface{}{
		&models.Admin{},
		&models.Device{},
		&models.DeviceHeartbeat{},
		&models.PunchRecord{},
		&models.DeviceUser{},
		&models.FingerprintTemplate{},
		&models.FaceTemplate{},
		&models.DeviceOperationLog{},
		&models.Command{},
		&models.SyncLog{},
		&models.AttendanceConfig{},
		&models.Shift{},
		&models.Employee{},
		&models.RosterDay{},
		&models.Holiday{},
		&models.LeaveGrant{},
		&models.AttendanceRecord{},
		&models.OvertimeRecord{},
	}
}

// AutoMigrate 自动迁移所有模型（只添加新列和新表）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	Logger.Info("数据库迁移完成")
	return nil
}

// DropAndRecreate 删除并重建所有表
func DropAndRecreate(db *gorm.DB) error {
	all := Models()
	// 逆序删除
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			Logger.Warning("删除表失败: %v", err)
		}
	}
	return AutoMigrate(db)
}

// Migrate 根据迁移模式执行数据库操作
func Migrate(db *gorm.DB, mode string) error {
	switch mode {
	case "drop":
		Logger.Warning("在drop模式下运行，将删除并重建所有表")
		return DropAndRecreate(db)
	default:
		return AutoMigrate(db)
	}
}
