package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
)

// InterfaceRedisService defines the Redis service interface
type InterfaceRedisService interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	CacheDeviceLastSeen(serial string, at time.Time) error
	GetDeviceLastSeen(serial string) (time.Time, error)
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	Ping(ctx context.Context) error
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// deviceLastSeenTTL 最后在线时间缓存有效期
const deviceLastSeenTTL = 10 * time.Minute

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) InterfaceRedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RedisService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// 1 Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// 2 Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// 3 Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

// 4 CacheDeviceLastSeen 缓存设备最后活动时间
func (s *RedisService) CacheDeviceLastSeen(serial string, at time.Time) error {
	return s.Set("device:last_seen:"+serial, at, deviceLastSeenTTL)
}

// 5 GetDeviceLastSeen 读取缓存的设备最后活动时间
func (s *RedisService) GetDeviceLastSeen(serial string) (time.Time, error) {
	var at time.Time
	err := s.Get("device:last_seen:"+serial, &at)
	return at, err
}

// 6 AcquireLock 以 SETNX 获取带过期时间的锁
func (s *RedisService) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, token, ttl).Result()
}

// 7 ReleaseLock 释放锁，token 不匹配时不做任何事
func (s *RedisService) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, s.Client, []string{key}, token).Err()
}

// 8 Ping 检查 Redis 连接
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
