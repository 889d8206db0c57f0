package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCircuitBreaker_ConsecutiveErrors 连续失败达到上限后熔断，成功会清零
func TestCircuitBreaker_ConsecutiveErrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxConsecutiveErrors: 2})
	cb.OnError()
	assert.NoError(t, cb.AllowTrading())
	cb.OnSuccess()
	cb.OnError()
	assert.NoError(t, cb.AllowTrading())
	cb.OnError()
	assert.ErrorIs(t, cb.AllowTrading(), ErrCircuitBreakerOpen)
	assert.True(t, cb.Paused())

	// 熔断是粘滞的，需要手动恢复
	cb.OnSuccess()
	assert.ErrorIs(t, cb.AllowTrading(), ErrCircuitBreakerOpen)
	cb.Resume()
	assert.NoError(t, cb.AllowTrading())
}

// TestCircuitBreaker_DailyLoss 当日亏损达到上限熔断，跨日清零
func TestCircuitBreaker_DailyLoss(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local)
	cb := NewCircuitBreaker(CircuitBreakerConfig{DailyLossLimit: 100})
	cb.now = func() time.Time { return now }

	cb.AddPnL(-60)
	cb.AddPnL(0.1)
	assert.NoError(t, cb.AllowTrading())
	cb.AddPnL(-40.1)
	assert.Equal(t, -100.0, cb.DailyPnL())
	assert.ErrorIs(t, cb.AllowTrading(), ErrCircuitBreakerOpen)

	now = now.Add(2 * time.Hour)
	assert.Zero(t, cb.DailyPnL())
	cb.Resume()
	assert.NoError(t, cb.AllowTrading())
}

// TestCircuitBreaker_Disabled 阈值为 0 时只有手动熔断
func TestCircuitBreaker_Disabled(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	for i := 0; i < 10; i++ {
		cb.OnError()
	}
	cb.AddPnL(-1e9)
	assert.NoError(t, cb.AllowTrading())

	cb.Pause()
	assert.ErrorIs(t, cb.AllowTrading(), ErrCircuitBreakerOpen)
}
