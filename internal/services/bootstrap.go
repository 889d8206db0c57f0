package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
)

var bootstrapLog = logrus.WithField("component", "bootstrap")

// Restorable 可以从本地快照恢复的账本
type Restorable interface {
	ports.Syncer
	Restore() error
}

// NamedLedger 启动同步的一个步骤
type NamedLedger struct {
	Name   string
	Ledger Restorable
}

// Bootstrap 启动时按顺序同步各账本；同步失败时用本地快照兜底
// 同步和恢复都失败时返回同步的错误，账本保持为空
func Bootstrap(ctx context.Context, ledgers ...NamedLedger) error {
	for _, l := range ledgers {
		err := l.Ledger.Sync(ctx)
		if err == nil {
			bootstrapLog.Infof("✅ %s 已同步", l.Name)
			continue
		}
		if rerr := l.Ledger.Restore(); rerr != nil {
			bootstrapLog.Errorf("%s 同步失败且无法恢复快照: sync=%v restore=%v", l.Name, err, rerr)
			return err
		}
		metrics.SnapshotRestores.Add(1)
		bootstrapLog.Warnf("⚠️ %s 同步失败，已从快照恢复: %v", l.Name, err)
	}
	return nil
}
