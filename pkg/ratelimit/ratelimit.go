package ratelimit

import (
	"context"
	"sync"
	"time"
)

// 端点类别
const (
	ClassPublic  = "public"  // 公开 API（getboardstate / getticker）
	ClassPrivate = "private" // 私有查询 API（/v1/me/get*）
	ClassOrder   = "order"   // 下单与撤单
)

// Lightning 的限制：私有 API 每 5 分钟 500 次，下单类每 5 分钟 300 次，公开 API 按 IP 每 5 分钟 500 次
const lightningWindow = 5 * time.Minute

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
}

// SlidingWindow 滑动窗口速率限制器
type SlidingWindow struct {
	limit      int           // 限制数量
	windowSize time.Duration // 窗口大小
	requests   []time.Time   // 请求时间戳（升序）
	now        func() time.Time
	mu         sync.Mutex
}

// NewSlidingWindow 创建新的滑动窗口速率限制器
func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// evict 移除窗口外的请求，调用方持有锁
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	sw.requests = sw.requests[i:]
}

// Allow 检查是否允许请求，允许时记录本次请求
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.evict(now)
	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

// Wait 等待直到允许请求
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		waitTime := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			if w := sw.windowSize - sw.now().Sub(sw.requests[0]); w > 0 {
				waitTime = w
			}
		}
		sw.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetRemaining 获取剩余请求数
func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.evict(sw.now())
	return max(0, sw.limit-len(sw.requests))
}

// RateLimitManager 按端点类别管理限制器
type RateLimitManager struct {
	limiters map[string]RateLimiter
	mu       sync.RWMutex
}

// NewRateLimitManager 创建带 Lightning 默认限制的管理器
func NewRateLimitManager() *RateLimitManager {
	return &RateLimitManager{
		limiters: map[string]RateLimiter{
			ClassPublic:  NewSlidingWindow(500, lightningWindow),
			ClassPrivate: NewSlidingWindow(500, lightningWindow),
			ClassOrder:   NewSlidingWindow(300, lightningWindow),
		},
	}
}

// SetLimiter 替换某类别的限制器
func (rlm *RateLimitManager) SetLimiter(class string, limiter RateLimiter) {
	rlm.mu.Lock()
	defer rlm.mu.Unlock()
	rlm.limiters[class] = limiter
}

// GetLimiter 获取类别的限制器，未知类别返回 nil
func (rlm *RateLimitManager) GetLimiter(class string) RateLimiter {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()
	return rlm.limiters[class]
}

// Wait 等待直到允许请求；下单类同时占用私有 API 的额度
func (rlm *RateLimitManager) Wait(ctx context.Context, class string) error {
	classes := []string{class}
	if class == ClassOrder {
		classes = append(classes, ClassPrivate)
	}
	for _, c := range classes {
		if limiter := rlm.GetLimiter(c); limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRemaining 获取剩余请求数，未知类别返回 -1
func (rlm *RateLimitManager) GetRemaining(class string) int {
	if limiter := rlm.GetLimiter(class); limiter != nil {
		return limiter.GetRemaining()
	}
	return -1
}
