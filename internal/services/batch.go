package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/ports"
)

var batchLog = logrus.WithField("component", "batch")

// Batch 定时全量同步，与 stream 的暂停互不影响
type Batch struct {
	*periodic
	target ports.Syncer
}

// NewBatch 创建批量同步服务
func NewBatch(target ports.Syncer, interval time.Duration) *Batch {
	return &Batch{periodic: newPeriodic(interval), target: target}
}

// Run 阻塞运行直到 ctx 结束
func (b *Batch) Run(ctx context.Context) error {
	batchLog.Infof("🔄 [批量同步] 启动，间隔 %s", b.interval)
	return b.run(ctx, b.tick)
}

func (b *Batch) tick(ctx context.Context) {
	start := time.Now()
	if err := b.target.Sync(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		batchLog.Warnf("🔄 [批量同步] 失败，下个周期重试: %v", err)
		return
	}
	batchLog.Debugf("🔄 [批量同步] 完成，耗时 %s", time.Since(start))
}
