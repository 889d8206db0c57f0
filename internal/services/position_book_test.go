package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
)

func pos(side domain.Side, price, size float64) domain.Position {
	return domain.Position{ProductCode: "FX_BTC_JPY", Side: side, Price: price, Size: size}
}

func fill(side domain.Side, price, size float64) domain.Fill {
	return domain.Fill{ProductCode: "FX_BTC_JPY", Side: side, Price: price, Size: size}
}

func syncedBook(t *testing.T, positions ...domain.Position) *PositionBook {
	t.Helper()
	book := NewPositionBook("FX_BTC_JPY", &fakeExchange{positions: positions})
	require.NoError(t, book.Sync(context.Background()))
	return book
}

// TestAddAndSettle_PartialOffset 买 10@100，卖 4@110 -> 盈亏 40，剩余买 6@100
func TestAddAndSettle_PartialOffset(t *testing.T) {
	book := syncedBook(t, pos(domain.SideBuy, 100, 10))
	pnl := book.AddAndSettle(fill(domain.SideSell, 110, 4))
	assert.Equal(t, 40.0, pnl)
	assert.Equal(t, []domain.Position{pos(domain.SideBuy, 100, 6)}, book.List())
}

// TestAddAndSettle_NoOpposite 没有反向持仓时直接追加
func TestAddAndSettle_NoOpposite(t *testing.T) {
	book := syncedBook(t, pos(domain.SideBuy, 100, 1))
	pnl := book.AddAndSettle(fill(domain.SideBuy, 105, 5))
	assert.Zero(t, pnl)
	positions := book.List()
	require.Len(t, positions, 2)
	assert.Equal(t, domain.SideBuy, positions[1].Side)
	assert.Equal(t, 5.0, positions[1].Size)
	assert.Equal(t, 105.0, positions[1].Price)
}

// TestAddAndSettle_Overfill 成交超过唯一的反向持仓：平掉并反向开仓
func TestAddAndSettle_Overfill(t *testing.T) {
	book := syncedBook(t, pos(domain.SideSell, 200, 3))
	pnl := book.AddAndSettle(fill(domain.SideBuy, 190, 5))
	// 买入平空：(持仓价 - 成交价) * 3
	assert.Equal(t, 30.0, pnl)
	positions := book.List()
	require.Len(t, positions, 1)
	assert.Equal(t, domain.SideBuy, positions[0].Side)
	assert.Equal(t, 2.0, positions[0].Size)
	assert.Equal(t, 190.0, positions[0].Price)
}

// TestAddAndSettle_FIFO 按记录顺序抵消，跨多条持仓累计盈亏
func TestAddAndSettle_FIFO(t *testing.T) {
	book := syncedBook(t,
		pos(domain.SideBuy, 100, 1),
		pos(domain.SideSell, 130, 9), // 同向，跳过
		pos(domain.SideBuy, 120, 2),
		pos(domain.SideBuy, 90, 5),
	)
	pnl := book.AddAndSettle(fill(domain.SideSell, 110, 2))
	// (110-100)*1 + (110-120)*1 = 0
	assert.Zero(t, pnl)
	assert.Equal(t, []domain.Position{
		pos(domain.SideSell, 130, 9),
		pos(domain.SideBuy, 120, 1),
		pos(domain.SideBuy, 90, 5),
	}, book.List())
}

// TestAddAndSettle_DecimalResidue 浮点残差不会留下极小持仓
func TestAddAndSettle_DecimalResidue(t *testing.T) {
	book := syncedBook(t, pos(domain.SideBuy, 100, 0.1), pos(domain.SideBuy, 100, 0.2))
	book.AddAndSettle(fill(domain.SideSell, 100, 0.3))
	assert.Empty(t, book.List())
	assert.Zero(t, book.NetSize(domain.SideBuy))
}

// TestAddAndSettle_SkipsEmptyPositions size 为 0 的反向持仓不参与
func TestAddAndSettle_SkipsEmptyPositions(t *testing.T) {
	book := syncedBook(t, pos(domain.SideBuy, 100, 0))
	pnl := book.AddAndSettle(fill(domain.SideSell, 110, 1))
	assert.Zero(t, pnl)
	assert.Len(t, book.List(), 2)
}

// TestAddAndSettle_Concurrent 并发成交下总量守恒
func TestAddAndSettle_Concurrent(t *testing.T) {
	book := syncedBook(t, pos(domain.SideBuy, 100, 50))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			book.AddAndSettle(fill(domain.SideSell, 101, 1))
		}()
	}
	wg.Wait()
	assert.Empty(t, book.List())
}

// TestPositionBook_SyncFailure 同步失败保留旧数据
func TestPositionBook_SyncFailure(t *testing.T) {
	ex := &fakeExchange{positions: []domain.Position{pos(domain.SideBuy, 100, 1)}}
	book := NewPositionBook("FX_BTC_JPY", ex)
	require.NoError(t, book.Sync(context.Background()))
	assert.Equal(t, ex.positions, book.List())

	ex.fail(errExchangeDown)
	err := book.Sync(context.Background())
	assert.True(t, faults.IsExchange(err))
	assert.Equal(t, 1.0, book.NetSize(domain.SideBuy))
}
