package agent

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/logger"
	"github.com/betbot/flyerbot/pkg/syncgroup"
)

// ExecutorConfig 动作执行参数
type ExecutorConfig struct {
	ProductCode    string
	OrderSize      float64
	MinuteToExpire int
	DryRun         bool          // 只写 action 日志，不调用交易所
	DedupTTL       time.Duration // 同一动作的最小间隔
}

// Guard 下单前的风控检查
type Guard interface {
	AllowTrading() error
	OnSuccess()
	OnError()
}

// Executor 把动作翻译成下单/撤单
type Executor struct {
	cfg      ExecutorConfig
	placer   ports.OrderPlacer
	inFlight *InFlightDeduper
	guard    Guard
}

// NewExecutor 非 dry run 时必须提供 placer
func NewExecutor(cfg ExecutorConfig, placer ports.OrderPlacer) (*Executor, error) {
	if placer == nil && !cfg.DryRun {
		return nil, faults.Logic("agent.executor", "order placer is nil")
	}
	if cfg.OrderSize <= 0 {
		return nil, faults.Logic("agent.executor", "order size must be positive, got %v", cfg.OrderSize)
	}
	return &Executor{cfg: cfg, placer: placer, inFlight: NewInFlightDeduper(cfg.DedupTTL)}, nil
}

// WithGuard 设置风控；撤单不受风控限制
func (e *Executor) WithGuard(g Guard) *Executor {
	e.guard = g
	return e
}

// Execute 执行一个动作；缺少板快照或没有可撤订单时什么都不做
func (e *Executor) Execute(ctx context.Context, action Action, state State) error {
	metrics.AgentActions.Add(1)
	entry := logger.Action().WithFields(logrus.Fields{
		"action":  action.String(),
		"product": e.cfg.ProductCode,
		"dry_run": e.cfg.DryRun,
	})

	switch action {
	case ActionDoNothing:
		entry.Debug("不动作")
		return nil
	case ActionBuyAtBestAsk:
		return e.place(ctx, entry, action, domain.SideBuy, state, domain.BoardSnapshot.BestAsk)
	case ActionSellAtBestBid:
		return e.place(ctx, entry, action, domain.SideSell, state, domain.BoardSnapshot.BestBid)
	case ActionBuyAtBestBid:
		return e.place(ctx, entry, action, domain.SideBuy, state, domain.BoardSnapshot.BestBid)
	case ActionSellAtBestAsk:
		return e.place(ctx, entry, action, domain.SideSell, state, domain.BoardSnapshot.BestAsk)
	case ActionCancelBuyOrder:
		return e.cancel(ctx, entry, domain.SideBuy, state.ActiveOrders)
	case ActionCancelSellOrder:
		return e.cancel(ctx, entry, domain.SideSell, state.ActiveOrders)
	default:
		return faults.Logic("agent.execute", "unknown action %d", int(action))
	}
}

func (e *Executor) place(ctx context.Context, entry *logrus.Entry, action Action, side domain.Side, state State,
	level func(domain.BoardSnapshot) (domain.PriceLevel, bool)) error {
	board, ok := state.Latest()
	if !ok {
		entry.Warn("没有板快照，跳过")
		return nil
	}
	best, ok := level(board)
	if !ok {
		entry.Warn("板上没有对应价位，跳过")
		return nil
	}

	if e.guard != nil {
		if err := e.guard.AllowTrading(); err != nil {
			entry.Warnf("风控拒绝下单: %v", err)
			return nil
		}
	}

	key := action.String()
	if err := e.inFlight.TryAcquire(key); err != nil {
		entry.Debug("同一动作仍在冷却中，跳过")
		return nil
	}

	req := domain.OrderRequest{
		ProductCode:    e.cfg.ProductCode,
		ChildOrderType: domain.ChildOrderTypeLimit,
		Side:           side,
		Price:          best.Price,
		Size:           e.cfg.OrderSize,
		MinuteToExpire: e.cfg.MinuteToExpire,
	}
	entry = entry.WithFields(logrus.Fields{"side": side, "price": req.Price, "size": req.Size})
	if e.cfg.DryRun {
		entry.Info("[dry-run] 下单")
		return nil
	}

	ack, err := e.placer.CreateOrder(ctx, req)
	if err != nil {
		e.inFlight.Release(key)
		if e.guard != nil {
			e.guard.OnError()
		}
		entry.Warnf("下单失败: %v", err)
		return faults.Exchange("agent.create_order", err)
	}
	if e.guard != nil {
		e.guard.OnSuccess()
	}
	entry.WithField("acceptance_id", ack.ChildOrderAcceptanceID).Info("下单已受理")
	return nil
}

func (e *Executor) cancel(ctx context.Context, entry *logrus.Entry, side domain.Side, orders []domain.Order) error {
	var targets []domain.Order
	for _, o := range orders {
		if o.IsActive() && o.Side == side {
			targets = append(targets, o)
		}
	}
	if len(targets) == 0 {
		entry.Debug("没有可撤的订单")
		return nil
	}

	fns := make([]func(ctx context.Context) error, 0, len(targets))
	for _, o := range targets {
		o := o
		fns = append(fns, func(ctx context.Context) error {
			oe := entry.WithField("acceptance_id", o.ChildOrderAcceptanceID)
			if e.cfg.DryRun {
				oe.Info("[dry-run] 撤单")
				return nil
			}
			err := e.placer.CancelOrder(ctx, domain.CancelRequest{
				ProductCode:            e.cfg.ProductCode,
				ChildOrderAcceptanceID: o.ChildOrderAcceptanceID,
			})
			if err != nil {
				oe.Warnf("撤单失败: %v", err)
				return faults.Exchange("agent.cancel_order", err)
			}
			oe.Info("撤单已受理")
			return nil
		})
	}
	return syncgroup.Go(ctx, fns...)
}
