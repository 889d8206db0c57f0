package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/pkg/persistence"
)

// TestBootstrap_SyncsInOrder 全部成功时不使用快照
func TestBootstrap_SyncsInOrder(t *testing.T) {
	ex := &fakeExchange{
		balances:  []domain.Balance{{CurrencyCode: "JPY", Amount: 1}},
		positions: []domain.Position{pos(domain.SideBuy, 100, 1)},
	}
	portfolio := NewPortfolio("JPY", "BTC", ex)
	orders := NewOrderBook("FX_BTC_JPY", ex, domain.OrderFilter{})
	positions := NewPositionBook("FX_BTC_JPY", ex)

	restores := metrics.SnapshotRestores.Value()
	require.NoError(t, Bootstrap(context.Background(),
		NamedLedger{"portfolio", portfolio},
		NamedLedger{"orders", orders},
		NamedLedger{"positions", positions},
	))
	assert.Equal(t, 1.0, portfolio.LegalAmount())
	assert.Len(t, positions.List(), 1)
	assert.Equal(t, restores, metrics.SnapshotRestores.Value())
}

// TestBootstrap_FallsBackToSnapshot 交易所不可用时从快照恢复
func TestBootstrap_FallsBackToSnapshot(t *testing.T) {
	svc, err := persistence.NewFileService(t.TempDir())
	require.NoError(t, err)
	ex := &fakeExchange{positions: []domain.Position{pos(domain.SideSell, 200, 2)}}
	require.NoError(t, NewPositionBook("FX_BTC_JPY", ex).WithStore(svc.NewStore("ledger", "FX_BTC_JPY", "positions")).Sync(context.Background()))

	ex.fail(errExchangeDown)
	positions := NewPositionBook("FX_BTC_JPY", ex).WithStore(svc.NewStore("ledger", "FX_BTC_JPY", "positions"))
	restores := metrics.SnapshotRestores.Value()
	require.NoError(t, Bootstrap(context.Background(), NamedLedger{"positions", positions}))
	assert.Equal(t, 2.0, positions.NetSize(domain.SideSell))
	assert.Equal(t, restores+1, metrics.SnapshotRestores.Value())
}

// TestBootstrap_NoSnapshot 同步失败且没有快照时返回同步错误并停止
func TestBootstrap_NoSnapshot(t *testing.T) {
	ex := &fakeExchange{}
	ex.fail(errExchangeDown)
	later := &countingSyncer{}

	err := Bootstrap(context.Background(),
		NamedLedger{"portfolio", NewPortfolio("JPY", "BTC", ex)},
		NamedLedger{"later", restorableCounter{later}},
	)
	assert.True(t, faults.IsExchange(err))
	assert.Zero(t, later.runs.Load())
}

type restorableCounter struct{ *countingSyncer }

func (restorableCounter) Restore() error { return nil }
