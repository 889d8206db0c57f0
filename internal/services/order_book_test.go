package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/pkg/persistence"
)

func activeOrder(acceptanceID string, side domain.Side, price, size float64) domain.Order {
	return domain.Order{
		ProductCode:            "FX_BTC_JPY",
		Side:                   side,
		ChildOrderType:         domain.ChildOrderTypeLimit,
		Price:                  price,
		Size:                   size,
		OutstandingSize:        size,
		ChildOrderState:        domain.OrderStateActive,
		ChildOrderAcceptanceID: acceptanceID,
	}
}

func countActive(orders []domain.Order, acceptanceID string) int {
	n := 0
	for _, o := range orders {
		if o.ChildOrderAcceptanceID == acceptanceID && o.IsActive() {
			n++
		}
	}
	return n
}

// TestOrderBook_ExecuteAndCancel 状态迁移与幂等
func TestOrderBook_ExecuteAndCancel(t *testing.T) {
	book := NewOrderBook("FX_BTC_JPY", &fakeExchange{}, domain.OrderFilter{})
	book.Add(activeOrder("A", domain.SideBuy, 100, 1))
	book.Add(activeOrder("B", domain.SideSell, 110, 2))

	o, ok := book.Execute("A")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStateCompleted, o.ChildOrderState)
	assert.Equal(t, 1.0, o.ExecutedSize)

	// 重复/迟到的 EXECUTION 不再命中
	_, ok = book.Execute("A")
	assert.False(t, ok)
	_, ok = book.Cancel("A")
	assert.False(t, ok)

	o, ok = book.Cancel("B")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStateCanceled, o.ChildOrderState)
	assert.Equal(t, 2.0, o.CancelSize)

	_, ok = book.Cancel("unknown")
	assert.False(t, ok)

	orders := book.List()
	require.Len(t, orders, 2)
	assert.Equal(t, domain.OrderStateCompleted, orders[0].ChildOrderState)
	assert.Equal(t, domain.OrderStateCanceled, orders[1].ChildOrderState)
}

// TestOrderBook_Expire EXPIRE 事件
func TestOrderBook_Expire(t *testing.T) {
	book := NewOrderBook("FX_BTC_JPY", &fakeExchange{}, domain.OrderFilter{})
	book.Add(activeOrder("A", domain.SideBuy, 100, 1))
	o, ok := book.Expire("A")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStateExpired, o.ChildOrderState)
	assert.Empty(t, book.Active(""))
}

// TestOrderBook_DuplicateAddKeepsOneActive 重复 ORDER 事件不产生两个 ACTIVE
func TestOrderBook_DuplicateAddKeepsOneActive(t *testing.T) {
	book := NewOrderBook("FX_BTC_JPY", &fakeExchange{}, domain.OrderFilter{})
	book.Add(activeOrder("A", domain.SideBuy, 100, 1))
	book.Add(activeOrder("A", domain.SideBuy, 101, 1))
	assert.Equal(t, 1, countActive(book.List(), "A"))
	assert.Equal(t, 101.0, book.List()[0].Price)

	// 完成之后同一 acceptance id 可以再出现（resync 前的残留）
	book.Execute("A")
	book.Add(activeOrder("A", domain.SideBuy, 102, 1))
	assert.Equal(t, 1, countActive(book.List(), "A"))
	assert.Len(t, book.List(), 2)
}

// TestOrderBook_ListIsCopy List 的结果不受后续修改影响
func TestOrderBook_ListIsCopy(t *testing.T) {
	book := NewOrderBook("FX_BTC_JPY", &fakeExchange{}, domain.OrderFilter{})
	book.Add(activeOrder("A", domain.SideBuy, 100, 1))
	snapshot := book.List()
	book.Execute("A")
	assert.Equal(t, domain.OrderStateActive, snapshot[0].ChildOrderState)

	snapshot[0].Price = 1
	assert.Equal(t, 100.0, book.List()[0].Price)
}

// TestOrderBook_SyncRoundTrip sync 之后 list 与 REST 结果完全一致
func TestOrderBook_SyncRoundTrip(t *testing.T) {
	remote := []domain.Order{
		activeOrder("X", domain.SideBuy, 100, 0.5),
		{ID: 7, ChildOrderID: "JOR7", ProductCode: "FX_BTC_JPY", Side: domain.SideSell, ChildOrderType: domain.ChildOrderTypeMarket,
			AveragePrice: 99.5, Size: 0.1, ChildOrderState: domain.OrderStateCompleted, ChildOrderAcceptanceID: "Y",
			ExecutedSize: 0.1, TotalCommission: 0.0001, ChildOrderDate: "2024-01-01T00:00:00", ExpireDate: "2024-02-01T00:00:00"},
	}
	ex := &fakeExchange{orders: remote}
	book := NewOrderBook("FX_BTC_JPY", ex, domain.OrderFilter{ChildOrderState: domain.OrderStateActive})
	book.Add(activeOrder("stale", domain.SideBuy, 1, 1))

	require.NoError(t, book.Sync(context.Background()))
	assert.Equal(t, remote, book.List())
	assert.Equal(t, domain.OrderStateActive, ex.lastFilter.ChildOrderState)
}

// TestOrderBook_SyncFailureKeepsSnapshot 同步失败保留旧数据并返回 ExchangeFault
func TestOrderBook_SyncFailureKeepsSnapshot(t *testing.T) {
	ex := &fakeExchange{orders: []domain.Order{activeOrder("X", domain.SideBuy, 100, 1)}}
	book := NewOrderBook("FX_BTC_JPY", ex, domain.OrderFilter{})
	require.NoError(t, book.Sync(context.Background()))

	ex.fail(errExchangeDown)
	err := book.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, faults.IsExchange(err))
	assert.ErrorIs(t, err, errExchangeDown)
	assert.Len(t, book.List(), 1)
}

// TestOrderBook_RestoreFromStore 启动同步失败时从快照恢复
func TestOrderBook_RestoreFromStore(t *testing.T) {
	store := newFileStore(t, "orders")
	ex := &fakeExchange{orders: []domain.Order{activeOrder("X", domain.SideBuy, 100, 1)}}
	require.NoError(t, NewOrderBook("FX_BTC_JPY", ex, domain.OrderFilter{}).WithStore(store).Sync(context.Background()))

	fresh := NewOrderBook("FX_BTC_JPY", ex, domain.OrderFilter{}).WithStore(store)
	require.NoError(t, fresh.Restore())
	assert.Equal(t, ex.orders, fresh.List())

	assert.ErrorIs(t, NewOrderBook("FX_BTC_JPY", ex, domain.OrderFilter{}).Restore(), persistence.ErrNotExists)
}
