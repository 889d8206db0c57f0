package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/persistence"
	"github.com/betbot/flyerbot/pkg/syncgroup"
)

var portfolioLog = logrus.WithField("component", "portfolio")

// Portfolio 账户余额与证据金
type Portfolio struct {
	legalCode  string
	cryptoCode string
	client     ports.AccountReader
	store      persistence.Store

	mu       sync.RWMutex
	snapshot domain.PortfolioSnapshot
}

// NewPortfolio 创建账户视图；legalCode 如 JPY，cryptoCode 如 BTC
func NewPortfolio(legalCode, cryptoCode string, client ports.AccountReader) *Portfolio {
	return &Portfolio{legalCode: legalCode, cryptoCode: cryptoCode, client: client}
}

// WithStore 同步成功后把快照写入 store
func (p *Portfolio) WithStore(store persistence.Store) *Portfolio {
	p.store = store
	return p
}

// Sync 并发拉取余额与证据金，两者都成功才替换快照
func (p *Portfolio) Sync(ctx context.Context) error {
	var (
		balances   []domain.Balance
		collateral domain.Collateral
	)
	err := syncgroup.Go(ctx,
		func(ctx context.Context) (err error) {
			balances, err = p.client.GetBalance(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			collateral, err = p.client.GetCollateral(ctx)
			return err
		},
	)
	if err != nil {
		return faults.Exchange("portfolio.sync", err)
	}

	next := domain.PortfolioSnapshot{CollateralAmount: collateral.Collateral}
	for _, b := range balances {
		switch b.CurrencyCode {
		case p.legalCode:
			next.LegalAmount = b.Amount
		case p.cryptoCode:
			next.CryptoAmount = b.Amount
		}
	}

	p.mu.Lock()
	p.snapshot = next
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.Save(next); err != nil {
			portfolioLog.Warnf("保存账户快照失败: %v", err)
		}
	}
	return nil
}

// Restore 从快照加载上一次同步结果
func (p *Portfolio) Restore() error {
	if p.store == nil {
		return persistence.ErrNotExists
	}
	var snap domain.PortfolioSnapshot
	if err := p.store.Load(&snap); err != nil {
		return err
	}
	p.mu.Lock()
	p.snapshot = snap
	p.mu.Unlock()
	return nil
}

func (p *Portfolio) LegalAmount() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.LegalAmount
}

func (p *Portfolio) CryptoAmount() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.CryptoAmount
}

func (p *Portfolio) CollateralAmount() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.CollateralAmount
}

// Snapshot 返回当前快照
func (p *Portfolio) Snapshot() domain.PortfolioSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}
