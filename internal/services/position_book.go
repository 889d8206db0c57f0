package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/persistence"
)

var positionBookLog = logrus.WithField("component", "position_book")

// PositionBook 建玉账本，成交时按记录顺序（FIFO）与反向持仓净额结算
type PositionBook struct {
	productCode string
	client      ports.PositionReader
	store       persistence.Store

	mu        sync.Mutex
	positions []domain.Position
}

// NewPositionBook 创建持仓账本
func NewPositionBook(productCode string, client ports.PositionReader) *PositionBook {
	return &PositionBook{
		productCode: productCode,
		client:      client,
		positions:   make([]domain.Position, 0),
	}
}

// WithStore 同步成功后把快照写入 store
func (b *PositionBook) WithStore(store persistence.Store) *PositionBook {
	b.store = store
	return b
}

// Sync 拉取 REST 快照后整体替换；失败时保留旧快照
func (b *PositionBook) Sync(ctx context.Context) error {
	positions, err := b.client.GetPositions(ctx, b.productCode)
	if err != nil {
		return faults.Exchange("position_book.sync", err)
	}
	replaced := make([]domain.Position, len(positions))
	copy(replaced, positions)

	b.mu.Lock()
	b.positions = replaced
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.Save(positions); err != nil {
			positionBookLog.Warnf("保存持仓快照失败: %v", err)
		}
	}
	return nil
}

// Restore 从快照加载，仅在账本为空时生效
func (b *PositionBook) Restore() error {
	if b.store == nil {
		return persistence.ErrNotExists
	}
	var positions []domain.Position
	if err := b.store.Load(&positions); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.positions) == 0 {
		b.positions = positions
	}
	return nil
}

// AddAndSettle 记录一笔成交并返回已实现盈亏
//
// 依次扫描反向且 size > 0 的持仓：抵消 min(持仓, 成交) 的数量，
// 卖出成交盈亏为 (成交价 - 持仓价) * 抵消量，买入成交为 (持仓价 - 成交价) * 抵消量。
// 持仓归零则移除，成交剩余部分作为新持仓追加。
func (b *PositionBook) AddAndSettle(fill domain.Fill) float64 {
	remaining := decimal.NewFromFloat(fill.Size)
	fillPrice := decimal.NewFromFloat(fill.Price)
	pnl := decimal.Zero
	opposite := fill.Side.Opposite()

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := make([]domain.Position, 0, len(b.positions)+1)
	for _, p := range b.positions {
		if !remaining.IsPositive() || p.Side != opposite || p.Size <= 0 {
			kept = append(kept, p)
			continue
		}
		size := decimal.NewFromFloat(p.Size)
		offset := decimal.Min(size, remaining)
		price := decimal.NewFromFloat(p.Price)
		if fill.Side == domain.SideSell {
			pnl = pnl.Add(fillPrice.Sub(price).Mul(offset))
		} else {
			pnl = pnl.Add(price.Sub(fillPrice).Mul(offset))
		}
		remaining = remaining.Sub(offset)
		size = size.Sub(offset)
		if size.IsPositive() {
			p.Size = size.InexactFloat64()
			kept = append(kept, p)
		}
	}
	if remaining.IsPositive() {
		rest := fill.ToPosition()
		rest.Size = remaining.InexactFloat64()
		kept = append(kept, rest)
	}
	b.positions = kept

	return pnl.InexactFloat64()
}

// List 返回所有持仓的副本
func (b *PositionBook) List() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Position, len(b.positions))
	copy(out, b.positions)
	return out
}

// NetSize 指定方向的持仓合计
func (b *PositionBook) NetSize(side domain.Side) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := decimal.Zero
	for _, p := range b.positions {
		if p.Side == side {
			total = total.Add(decimal.NewFromFloat(p.Size))
		}
	}
	return total.InexactFloat64()
}
