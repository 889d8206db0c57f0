// Package risk 下单前的熔断检查
package risk

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var riskLog = logrus.WithField("component", "risk")

// ErrCircuitBreakerOpen 表示断路器已打开，禁止继续下单
var ErrCircuitBreakerOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig 阈值 <= 0 表示关闭对应限制
type CircuitBreakerConfig struct {
	// MaxConsecutiveErrors 连续下单失败上限
	MaxConsecutiveErrors int64
	// DailyLossLimit 当日已实现亏损上限（法币），达到时熔断
	DailyLossLimit float64
}

// CircuitBreaker 连续错误和当日亏损两类熔断；熔断后需要手动 Resume
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	halted            atomic.Bool
	consecutiveErrors atomic.Int64

	mu       sync.Mutex
	day      string
	dailyPnL decimal.Decimal
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Pause 手动熔断
func (cb *CircuitBreaker) Pause() {
	if cb.halted.CompareAndSwap(false, true) {
		riskLog.Warn("⛔ 手动熔断")
	}
}

// Resume 手动恢复，同时清空连续错误计数
func (cb *CircuitBreaker) Resume() {
	cb.consecutiveErrors.Store(0)
	if cb.halted.CompareAndSwap(true, false) {
		riskLog.Info("熔断已解除")
	}
}

// Paused 是否处于熔断状态
func (cb *CircuitBreaker) Paused() bool {
	return cb.halted.Load()
}

// AllowTrading 下单前检查
func (cb *CircuitBreaker) AllowTrading() error {
	if cb.halted.Load() {
		return ErrCircuitBreakerOpen
	}

	if maxErr := cb.cfg.MaxConsecutiveErrors; maxErr > 0 && cb.consecutiveErrors.Load() >= maxErr {
		cb.trip("连续下单失败 %d 次", cb.consecutiveErrors.Load())
		return ErrCircuitBreakerOpen
	}

	if limit := cb.cfg.DailyLossLimit; limit > 0 {
		pnl := cb.DailyPnL()
		if pnl <= -limit {
			cb.trip("当日亏损 %.0f 达到上限 %.0f", pnl, limit)
			return ErrCircuitBreakerOpen
		}
	}
	return nil
}

func (cb *CircuitBreaker) trip(format string, args ...any) {
	if cb.halted.CompareAndSwap(false, true) {
		riskLog.Warnf("⛔ 熔断: "+format, args...)
	}
}

// OnSuccess 下单成功后清空连续错误计数
func (cb *CircuitBreaker) OnSuccess() {
	cb.consecutiveErrors.Store(0)
}

// OnError 下单失败后累计连续错误
func (cb *CircuitBreaker) OnError() {
	cb.consecutiveErrors.Add(1)
}

// AddPnL 累加一笔已实现盈亏，负数为亏损
func (cb *CircuitBreaker) AddPnL(delta float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.rollDayLocked()
	cb.dailyPnL = cb.dailyPnL.Add(decimal.NewFromFloat(delta))
}

// DailyPnL 当日已实现盈亏
func (cb *CircuitBreaker) DailyPnL() float64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.rollDayLocked()
	return cb.dailyPnL.InexactFloat64()
}

// rollDayLocked 跨日清零（本地时间）
func (cb *CircuitBreaker) rollDayLocked() {
	day := cb.now().Format("2006-01-02")
	if cb.day != day {
		cb.day = day
		cb.dailyPnL = decimal.Zero
	}
}
