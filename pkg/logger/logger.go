package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// 定义不同级别的日志记录器
	InfoLogger    *log.Logger
	WarningLogger *log.Logger
	ErrorLogger   *log.Logger
	DebugLogger   *log.Logger

	debugEnabled bool
	initOnce     sync.Once
)

const logFlags = log.Ldate | log.Ltime | log.Lshortfile

// SetupLogger 初始化日志配置，日志同时写入控制台和 logs/YYYY-MM-DD.log
func SetupLogger() error {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %v", err)
	}

	logFileName := filepath.Join(logDir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %v", err)
	}

	SetOutput(io.MultiWriter(os.Stdout, logFile))
	return nil
}

// SetOutput 将所有级别的日志重定向到 w
func SetOutput(w io.Writer) {
	InfoLogger = log.New(w, "INFO: ", logFlags)
	WarningLogger = log.New(w, "WARNING: ", logFlags)
	ErrorLogger = log.New(w, "ERROR: ", logFlags)
	DebugLogger = log.New(w, "DEBUG: ", logFlags)
	initOnce.Do(func() {})
}

// EnableDebug 打开或关闭 Debug 级别输出
func EnableDebug(enabled bool) {
	debugEnabled = enabled
}

// ensure lets packages log before main calls SetupLogger (tests, CLI).
func ensure() {
	initOnce.Do(func() {
		InfoLogger = log.New(os.Stdout, "INFO: ", logFlags)
		WarningLogger = log.New(os.Stdout, "WARNING: ", logFlags)
		ErrorLogger = log.New(os.Stderr, "ERROR: ", logFlags)
		DebugLogger = log.New(os.Stdout, "DEBUG: ", logFlags)
	})
}

// Info 记录信息级别的日志
func Info(format string, v ...interface{}) {
	ensure()
	InfoLogger.Output(2, fmt.Sprintf(format, v...))
}

// Warning 记录警告级别的日志
func Warning(format string, v ...interface{}) {
	ensure()
	WarningLogger.Output(2, fmt.Sprintf(format, v...))
}

// Error 记录错误级别的日志
func Error(format string, v ...interface{}) {
	ensure()
	ErrorLogger.Output(2, fmt.Sprintf(format, v...))
}

// Debug 记录调试级别的日志，仅在 EnableDebug(true) 后输出
func Debug(format string, v ...interface{}) {
	if !debugEnabled {
		return
	}
	ensure()
	DebugLogger.Output(2, fmt.Sprintf(format, v...))
}
