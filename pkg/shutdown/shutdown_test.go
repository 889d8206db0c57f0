package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestShutdown_RunsAllCallbacksOnce 所有回调都执行，失败不影响其他回调，重复调用无效
func TestShutdown_RunsAllCallbacksOnce(t *testing.T) {
	m := NewManager()
	var calls atomic.Int32
	m.OnShutdown("ok", func(context.Context) error { calls.Add(1); return nil })
	m.OnShutdown("fail", func(context.Context) error { calls.Add(1); return errors.New("boom") })

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())
	assert.EqualValues(t, 2, calls.Load())
}

// TestShutdown_Timeout 回调超时后返回
func TestShutdown_Timeout(t *testing.T) {
	m := NewManager()
	block := make(chan struct{})
	defer close(block)
	m.OnShutdown("stuck", func(context.Context) error { <-block; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	m.Shutdown(ctx)
	assert.Less(t, time.Since(start), time.Second)
}

// TestShutdown_Empty 没有回调直接返回
func TestShutdown_Empty(t *testing.T) {
	NewManager().Shutdown(context.Background())
}
