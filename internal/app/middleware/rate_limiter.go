package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/oleeahmmed/hrm/internal/error/code"
	"github.com/oleeahmmed/hrm/internal/error/response"
)

// RateLimiterConfig 限流器配置
type RateLimiterConfig struct {
	Rate       float64                   // 每秒允许的请求数
	Burst      int                       // 允许的突发请求数
	ExpiryTime time.Duration             // 空闲限流器的回收时间
	KeyFunc    func(*gin.Context) string // 限流键，默认按IP
}

// DefaultRateLimiterConfig 默认限流器配置
var DefaultRateLimiterConfig = RateLimiterConfig{
	Rate:       1,
	Burst:      5,
	ExpiryTime: 1 * time.Hour,
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按键保存限流器，定期回收空闲的
type limiterSet struct {
	mu      sync.Mutex
	cfg     RateLimiterConfig
	entries map[string]*limiterEntry
	swept   time.Time
}

func newLimiterSet(cfg RateLimiterConfig) *limiterSet {
	return &limiterSet{cfg: cfg, entries: map[string]*limiterEntry{}, swept: time.Now()}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.cfg.ExpiryTime > 0 && now.Sub(s.swept) > s.cfg.ExpiryTime {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > s.cfg.ExpiryTime {
				delete(s.entries, k)
			}
		}
		s.swept = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.Rate), s.cfg.Burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimiter 创建限流中间件
func RateLimiter(config ...RateLimiterConfig) gin.HandlerFunc {
	cfg := DefaultRateLimiterConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRateLimiterConfig.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimiterConfig.Burst
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	set := newLimiterSet(cfg)

	return func(c *gin.Context) {
		if !set.get(cfg.KeyFunc(c)).Allow() {
			response.FailWithMessage(c, code.ErrTooManyRequests, "请求频率过高，请稍后再试", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IPRateLimiter 按IP限流
func IPRateLimiter(r float64, burst int) gin.HandlerFunc {
	return RateLimiter(RateLimiterConfig{
		Rate:       r,
		Burst:      burst,
		ExpiryTime: time.Hour,
	})
}
