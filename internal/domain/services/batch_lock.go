package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	Logger "github.com/oleeahmmed/hrm/pkg/logger"
)

// BatchLock 按 scope 串行化批处理。进程内互斥始终生效，
// 配置了 Redis 时再加一把 SETNX 锁以覆盖多实例部署。
type BatchLock struct {
	mu     sync.Mutex
	held   map[string]bool
	Redis  InterfaceRedisService
	TTL    time.Duration
	prefix string
}

// NewBatchLock 创建批处理锁，redis 可以为 nil
func NewBatchLock(prefix string, redis InterfaceRedisService, ttl time.Duration) *BatchLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &BatchLock{
		held:   map[string]bool{},
		Redis:  redis,
		TTL:    ttl,
		prefix: prefix,
	}
}

// Key 返回 scope 对应的 Redis 键
func (l *BatchLock) Key(scope string) string {
	return l.prefix + ":lock:" + scope
}

// Acquire 获取锁，已被持有时返回 ErrBatchInProgress。
// 返回的函数释放锁，可以重复调用。
func (l *BatchLock) Acquire(ctx context.Context, scope string) (func(), error) {
	l.mu.Lock()
	if l.held[scope] {
		l.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	l.held[scope] = true
	l.mu.Unlock()

	token := ""
	if l.Redis != nil {
		t := uuid.NewString()
		ok, err := l.Redis.AcquireLock(ctx, l.Key(scope), t, l.TTL)
		switch {
		case err != nil:
			// Redis 不可用时退化为进程内锁
			Logger.Warning("[BATCH] Redis 锁不可用，仅使用进程内锁: %v", err)
		case !ok:
			l.release(scope)
			return nil, ErrBatchInProgress
		default:
			token = t
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if token != "" {
				if err := l.Redis.ReleaseLock(context.Background(), l.Key(scope), token); err != nil {
					Logger.Warning("[BATCH] 释放 Redis 锁失败: %v", err)
				}
			}
			l.release(scope)
		})
	}, nil
}

func (l *BatchLock) release(scope string) {
	l.mu.Lock()
	delete(l.held, scope)
	l.mu.Unlock()
}
