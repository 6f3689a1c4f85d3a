package database

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memSeq int64

// OpenMemory opens a private in-memory SQLite database with every model
// migrated.
func OpenMemory() (*gorm.DB, error) {
	name := fmt.Sprintf("file:mem%d?mode=memory&cache=shared", atomic.AddInt64(&memSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 单连接避免内存库在多个连接间不可见
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
