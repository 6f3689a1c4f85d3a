package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	config     *Config
	configOnce sync.Once
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Database
	DBDriver        string // "mysql"(默认), "postgres" 或 "sqlite"
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	DBMigrationMode string // 数据库迁移模式: "auto"(默认), "drop"(删除重建)
	DBLogLevel      string // gorm 日志级别: silent, error, warn, info

	// Server
	ServerPort string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool

	// MQTT配置
	MQTTBrokerURL   string // MQTT服务器地址，如 tcp://broker.example.com:1883
	MQTTClientID    string // MQTT客户端ID
	MQTTUsername    string // MQTT用户名
	MQTTPassword    string // MQTT密码
	MQTTQoS         int    // 服务质量 (0, 1, 2)
	MQTTRetained    bool   // 是否保留消息
	MQTTSSLEnabled  bool   // 是否启用SSL/TLS
	MQTTEnabled     bool   // 是否连接MQTT，关闭时事件只写日志
	MQTTTopicPrefix string // 事件主题前缀，如 attendance/events

	// ADMS push protocol settings returned on handshake
	ADMSErrorDelay    int    // 设备出错后重试间隔(秒)
	ADMSDelay         int    // 设备轮询间隔(秒)
	ADMSTimeZone      int    // 设备时区(小时)
	ADMSTransFlag     string // 设备需要推送的数据表
	ADMSServerVersion string
	ADMSPushVersion   string

	// Pull sync (legacy TCP)
	PullTimeout time.Duration // 单次连接超时

	// Command queue
	CommandTimeout time.Duration // sent 状态超过该时长视为 timeout
	SweepInterval  time.Duration

	// Batch engine
	BatchLockTTL time.Duration
	DefaultScope string
	Timezone     string // 考勤日期按该时区切分，如 Asia/Dhaka

	// JWT Authentication
	JWTSecretKey string

	// Admin
	DefaultAdminPassword string
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() *Config {
	// Get environment type (default to LOCAL if not set)
	envType := getEnv("ENV_TYPE", "LOCAL")
	prefix := ""

	// Set prefix based on environment type
	if strings.ToUpper(envType) == "LOCAL" {
		prefix = "LOCAL_"
	} else if strings.ToUpper(envType) == "SERVER" {
		prefix = "SERVER_"
	} else {
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	fmt.Printf("Loading configuration for environment: %s\n", envType)

	driver := strings.ToLower(getEnv(prefix+"DB_DRIVER", getEnv("DB_DRIVER", "mysql")))
	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}
	// sqlite 只需要文件名
	dbVar := getEnvRequired
	if driver == "sqlite" {
		dbVar = func(key string) string { return getEnv(key, "") }
	}

	return &Config{
		EnvType: envType,

		// Database config - use environment-specific variables if available
		DBDriver:        driver,
		DBHost:          dbVar(prefix + "DB_HOST"),
		DBUser:          dbVar(prefix + "DB_USER"),
		DBPassword:      dbVar(prefix + "DB_PASSWORD"),
		DBName:          getEnvRequired(prefix + "DB_NAME"),
		DBPort:          getEnv(prefix+"DB_PORT", defaultPort),
		DBMigrationMode: getEnv(prefix+"DB_MIGRATION_MODE", "auto"),
		DBLogLevel:      getEnv("DB_LOG_LEVEL", "warn"),

		// Server config
		ServerPort: getEnv(prefix+"SERVER_PORT", getEnv("SERVER_PORT", "8080")),

		// Redis config
		RedisHost:     getEnv(prefix+"REDIS_HOST", getEnv("REDIS_HOST", "localhost")),
		RedisPort:     getEnv(prefix+"REDIS_PORT", getEnv("REDIS_PORT", "6379")),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", true),

		// MQTT配置
		MQTTBrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "hrm_attendance"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTQoS:         getEnvAsInt("MQTT_QOS", 1),
		MQTTRetained:    getEnvAsBool("MQTT_RETAINED", false),
		MQTTSSLEnabled:  getEnvAsBool("MQTT_SSL_ENABLED", false),
		MQTTEnabled:     getEnvAsBool("MQTT_ENABLED", true),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "attendance/events"),

		// ADMS
		ADMSErrorDelay:    getEnvAsInt("ADMS_ERROR_DELAY", 30),
		ADMSDelay:         getEnvAsInt("ADMS_DELAY", 10),
		ADMSTimeZone:      getEnvAsInt("ADMS_TIMEZONE", 6),
		ADMSTransFlag:     getEnv("ADMS_TRANS_FLAG", "TransData AttLog OpLog EnrollUser ChgUser EnrollFP ChgFP FACE"),
		ADMSServerVersion: getEnv("ADMS_SERVER_VERSION", "2.4.1"),
		ADMSPushVersion:   getEnv("ADMS_PUSH_VERSION", "2.4.1"),

		PullTimeout: getEnvAsDuration("PULL_TIMEOUT", 5*time.Second),

		CommandTimeout: getEnvAsDuration("COMMAND_TIMEOUT", 30*time.Minute),
		SweepInterval:  getEnvAsDuration("COMMAND_SWEEP_INTERVAL", 5*time.Minute),

		BatchLockTTL: getEnvAsDuration("BATCH_LOCK_TTL", 10*time.Minute),
		DefaultScope: getEnv("DEFAULT_SCOPE", "default"),
		Timezone:     getEnv("ATTENDANCE_TIMEZONE", "UTC"),

		// JWT Config
		JWTSecretKey: getEnv("JWT_SECRET_KEY", "hrm-secret-key-change-in-production"),

		// Admin Config
		DefaultAdminPassword: getEnvRequired("DEFAULT_ADMIN_PASSWORD"),
	}
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		config = LoadConfig()
	})
	return config
}

// GetDSN returns the database connection string for the configured driver
func (c *Config) GetDSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBName
	}
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true&multiStatements=true"
}

// Location 返回考勤时区，无法识别时使用 UTC
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s", "5m") or plain seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// 要求必须提供环境变量的辅助函数
func getEnvRequired(key string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	panic(fmt.Sprintf("Required environment variable %s is not set", key))
}
