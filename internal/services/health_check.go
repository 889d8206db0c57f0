package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
)

var healthLog = logrus.WithField("component", "health_check")

// BoardStateSource 健康检查的数据来源
type BoardStateSource interface {
	RefreshBoardState(ctx context.Context) (domain.BoardState, error)
}

// HealthCheck 按交易所健康状态暂停/恢复 stream
// 电平触发：每轮都重新判断，不依赖状态变化的边沿
type HealthCheck struct {
	*periodic
	source BoardStateSource
	stream ports.Pausable
}

// NewHealthCheck 创建健康检查服务
func NewHealthCheck(source BoardStateSource, stream ports.Pausable, interval time.Duration) *HealthCheck {
	return &HealthCheck{periodic: newPeriodic(interval), source: source, stream: stream}
}

// Run 阻塞运行直到 ctx 结束
func (h *HealthCheck) Run(ctx context.Context) error {
	healthLog.Infof("🩺 [健康检查] 启动，间隔 %s", h.interval)
	return h.run(ctx, func(ctx context.Context) {
		if err := h.Check(ctx); err != nil && ctx.Err() == nil {
			healthLog.Warnf("🩺 [健康检查] 获取板状态失败，保持当前状态: %v", err)
		}
	})
}

// Check 执行一次检查；获取失败时不改变 stream 的暂停状态
func (h *HealthCheck) Check(ctx context.Context) error {
	metrics.HealthChecks.Add(1)
	st, err := h.source.RefreshBoardState(ctx)
	if err != nil {
		return err
	}
	paused := h.stream.Paused()
	switch {
	case st.Healthy() && paused:
		healthLog.Infof("🩺 [健康检查] health=%s state=%s，恢复 stream", st.Health, st.State)
		h.stream.Resume()
	case !st.Healthy() && !paused:
		healthLog.Warnf("🩺 [健康检查] health=%s state=%s，暂停 stream", st.Health, st.State)
		h.stream.Pause()
	}
	return nil
}
