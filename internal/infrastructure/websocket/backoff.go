package websocket

import (
	"math/rand"
	"time"
)

// Backoff 重连等待策略：从 Min 开始按 Factor 增长，不超过 Max，再叠加 ±Jitter 比例的抖动
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// DefaultBackoff 默认重连参数
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: 0.2,
	}
}

// Next 第 attempt 次（从 1 开始）失败后的等待时间
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	min, max, factor := b.Min, b.Max, b.Factor
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if factor <= 1 {
		factor = 2
	}

	wait := float64(min)
	for i := 1; i < attempt && wait < float64(max); i++ {
		wait *= factor
	}
	if wait > float64(max) {
		wait = float64(max)
	}

	jitter := b.Jitter
	if jitter <= 0 {
		return time.Duration(wait)
	}
	if jitter > 1 {
		jitter = 1
	}
	delta := wait * jitter
	return time.Duration(wait - delta + rand.Float64()*2*delta)
}
