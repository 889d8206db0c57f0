package services

import (
	"context"
	"sync"
	"time"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/syncgroup"
)

// Exchange 交易所的本地视图：板状态 + 挂在它上面的各个账本
type Exchange struct {
	productCode string
	client      ports.BoardStateReader
	ledgers     []ports.Syncer

	mu        sync.RWMutex
	board     domain.BoardState
	checkedAt time.Time
	lastSync  time.Time
}

// NewExchange 创建交易所视图；ledgers 在每次 Sync 时并发刷新
func NewExchange(productCode string, client ports.BoardStateReader, ledgers ...ports.Syncer) *Exchange {
	return &Exchange{
		productCode: productCode,
		client:      client,
		ledgers:     ledgers,
		board:       domain.BoardState{Health: domain.HealthNormal, State: domain.MarketStateRunning},
	}
}

// RefreshBoardState 拉取最新的 health / state
func (e *Exchange) RefreshBoardState(ctx context.Context) (domain.BoardState, error) {
	st, err := e.client.GetBoardState(ctx, e.productCode)
	if err != nil {
		return domain.BoardState{}, faults.Exchange("exchange.board_state", err)
	}
	e.mu.Lock()
	e.board = st
	e.checkedAt = time.Now()
	e.mu.Unlock()
	return st, nil
}

// Sync 并发刷新板状态和所有账本，返回合并的错误；单个失败不影响其他账本
func (e *Exchange) Sync(ctx context.Context) error {
	metrics.SyncRuns.Add(1)
	g := syncgroup.NewSyncGroup()
	g.Add(func(ctx context.Context) error {
		_, err := e.RefreshBoardState(ctx)
		return err
	})
	for _, l := range e.ledgers {
		g.Add(l.Sync)
	}
	g.Run(ctx)
	err := g.Wait()
	if err != nil {
		metrics.SyncErrors.Add(1)
		return err
	}
	e.mu.Lock()
	e.lastSync = time.Now()
	e.mu.Unlock()
	return nil
}

// BoardState 最近一次的板状态
func (e *Exchange) BoardState() domain.BoardState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board
}

// LastSync 最近一次完整同步成功的时间
func (e *Exchange) LastSync() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSync
}
