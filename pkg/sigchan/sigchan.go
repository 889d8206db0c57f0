package sigchan

import (
	"context"
	"time"
)

// Chan 非阻塞的唤醒信号，只通知不传数据
// 多次 Emit 在被消费前合并为一次
type Chan struct {
	c chan struct{}
}

// New 创建信号 channel
func New() *Chan {
	return &Chan{c: make(chan struct{}, 1)}
}

// Emit 发送信号（非阻塞）
func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// C 返回内部的 channel（用于 select）
func (c *Chan) C() <-chan struct{} {
	return c.c
}

// Drain 丢弃尚未消费的信号
func (c *Chan) Drain() {
	select {
	case <-c.c:
	default:
	}
}

// Wait 等待信号、超时或 ctx 结束；收到信号返回 true
func (c *Chan) Wait(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.c:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
