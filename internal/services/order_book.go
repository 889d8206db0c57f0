package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/persistence"
)

var orderBookLog = logrus.WithField("component", "order_book")

// OrderBook 子订单账本
// 所有读写都在 mu 内完成；REST 调用在加锁之前进行
type OrderBook struct {
	productCode string
	client      ports.OrderReader
	filter      domain.OrderFilter
	store       persistence.Store

	mu     sync.Mutex
	orders []domain.Order
}

// NewOrderBook 创建订单账本；filter 用于 Exchange 定时同步
func NewOrderBook(productCode string, client ports.OrderReader, filter domain.OrderFilter) *OrderBook {
	return &OrderBook{
		productCode: productCode,
		client:      client,
		filter:      filter,
		orders:      make([]domain.Order, 0),
	}
}

// WithStore 同步成功后把快照写入 store
func (b *OrderBook) WithStore(store persistence.Store) *OrderBook {
	b.store = store
	return b
}

// Sync 使用默认过滤条件整体替换
func (b *OrderBook) Sync(ctx context.Context) error {
	return b.SyncWithFilter(ctx, b.filter)
}

// SyncWithFilter 拉取 REST 快照后整体替换；失败时保留旧快照
func (b *OrderBook) SyncWithFilter(ctx context.Context, filter domain.OrderFilter) error {
	orders, err := b.client.GetOrders(ctx, b.productCode, filter)
	if err != nil {
		return faults.Exchange("order_book.sync", err)
	}
	replaced := make([]domain.Order, len(orders))
	copy(replaced, orders)

	b.mu.Lock()
	b.orders = replaced
	b.mu.Unlock()

	b.persist(orders)
	return nil
}

func (b *OrderBook) persist(orders []domain.Order) {
	if b.store == nil {
		return
	}
	if err := b.store.Save(orders); err != nil {
		orderBookLog.Warnf("保存订单快照失败: %v", err)
	}
}

// Restore 从快照加载，仅在账本为空时生效（启动同步失败时的临时视图）
func (b *OrderBook) Restore() error {
	if b.store == nil {
		return persistence.ErrNotExists
	}
	var orders []domain.Order
	if err := b.store.Load(&orders); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.orders) == 0 {
		b.orders = orders
	}
	return nil
}

// Add 记录新挂单；同一 acceptance id 已有 ACTIVE 订单时原地替换
func (b *OrderBook) Add(order domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexActive(order.ChildOrderAcceptanceID); i >= 0 && order.IsActive() {
		b.orders[i] = order
		return
	}
	b.orders = append(b.orders, order)
}

// indexActive 调用方持有锁
func (b *OrderBook) indexActive(acceptanceID string) int {
	for i := range b.orders {
		if b.orders[i].ChildOrderAcceptanceID == acceptanceID && b.orders[i].IsActive() {
			return i
		}
	}
	return -1
}

func (b *OrderBook) transition(acceptanceID string, to domain.OrderState) (domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexActive(acceptanceID)
	if i < 0 {
		return domain.Order{}, false
	}
	o := &b.orders[i]
	o.ChildOrderState = to
	switch to {
	case domain.OrderStateCompleted:
		o.ExecutedSize = o.Size
		o.OutstandingSize = 0
	case domain.OrderStateCanceled, domain.OrderStateExpired:
		o.CancelSize = o.OutstandingSize
		o.OutstandingSize = 0
	}
	return *o, true
}

// Execute ACTIVE -> COMPLETED；没有匹配的 ACTIVE 订单时返回 false
func (b *OrderBook) Execute(acceptanceID string) (domain.Order, bool) {
	return b.transition(acceptanceID, domain.OrderStateCompleted)
}

// Cancel ACTIVE -> CANCELED
func (b *OrderBook) Cancel(acceptanceID string) (domain.Order, bool) {
	return b.transition(acceptanceID, domain.OrderStateCanceled)
}

// Expire ACTIVE -> EXPIRED
func (b *OrderBook) Expire(acceptanceID string) (domain.Order, bool) {
	return b.transition(acceptanceID, domain.OrderStateExpired)
}

// List 返回所有订单的副本
func (b *OrderBook) List() []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Active 返回指定方向的 ACTIVE 订单（side 为空返回全部）
func (b *OrderBook) Active(side domain.Side) []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Order
	for _, o := range b.orders {
		if o.IsActive() && (side == "" || o.Side == side) {
			out = append(out, o)
		}
	}
	return out
}
