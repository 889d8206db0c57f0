// Package shutdown 退出时并发执行已注册的清理回调
package shutdown

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var shutdownLog = logrus.WithField("component", "shutdown")

// Handler 关闭处理函数
type Handler func(ctx context.Context) error

type callback struct {
	name    string
	handler Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	callbacks []callback
	mu        sync.Mutex
	once      sync.Once
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback{name: name, handler: handler})
}

// Shutdown 执行所有关闭回调（阻塞调用，只执行一次）
// ctx 应该是一个带超时的 context，避免无限等待
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() { m.shutdown(ctx) })
}

func (m *Manager) shutdown(ctx context.Context) {
	m.mu.Lock()
	callbacks := append([]callback(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		shutdownLog.Info("没有注册的关闭回调")
		return
	}

	shutdownLog.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func() {
			defer wg.Done()
			if err := cb.handler(ctx); err != nil {
				shutdownLog.Warnf("关闭 %s 失败: %v", cb.name, err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		shutdownLog.Info("所有关闭回调已完成")
	case <-ctx.Done():
		shutdownLog.Warnf("关闭超时: %v", ctx.Err())
	}
}
