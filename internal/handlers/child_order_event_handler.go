package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/journal"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/internal/services"
	"github.com/betbot/flyerbot/pkg/logger"
	"github.com/betbot/flyerbot/pkg/syncgroup"
)

// ChildOrderChannel 私有订单事件频道
const ChildOrderChannel = "child_order_events"

// Recorder 成交流水
type Recorder interface {
	Record(ctx context.Context, e journal.Execution) error
}

// PnLSink 接收每笔成交的已实现盈亏
type PnLSink interface {
	AddPnL(delta float64)
}

// ChildOrderEventHandler 把订单事件落到订单账本、持仓账本和账户
type ChildOrderEventHandler struct {
	orders    *services.OrderBook
	positions *services.PositionBook
	portfolio ports.Syncer
	recorder  Recorder
	pnlSink   PnLSink
}

var _ ports.MessageHandler = (*ChildOrderEventHandler)(nil)

// NewChildOrderEventHandler recorder 可以为 nil
func NewChildOrderEventHandler(orders *services.OrderBook, positions *services.PositionBook, portfolio ports.Syncer, recorder Recorder) *ChildOrderEventHandler {
	return &ChildOrderEventHandler{orders: orders, positions: positions, portfolio: portfolio, recorder: recorder}
}

// WithPnLSink 成交盈亏同时计入 sink（风控的当日亏损）
func (h *ChildOrderEventHandler) WithPnLSink(sink PnLSink) *ChildOrderEventHandler {
	h.pnlSink = sink
	return h
}

func (h *ChildOrderEventHandler) Channels() []string { return []string{ChildOrderChannel} }

// HandleMessage 按顺序处理一批事件；单个事件失败不影响后面的事件
func (h *ChildOrderEventHandler) HandleMessage(ctx context.Context, data json.RawMessage, _ string) error {
	events, err := decodeOneOrMany[domain.ChildOrderEvent]("child_order_event", data)
	if err != nil {
		return err
	}
	var errs []error
	for _, ev := range events {
		if err := h.handleEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &syncgroup.MultiError{Errors: errs}
	}
}

func (h *ChildOrderEventHandler) handleEvent(ctx context.Context, ev domain.ChildOrderEvent) error {
	txLog := logger.Transaction().WithFields(logrus.Fields{
		"event":         ev.EventType,
		"acceptance_id": ev.ChildOrderAcceptanceID,
	})

	switch ev.EventType {
	case domain.EventOrder:
		if err := validateTrade(ev); err != nil {
			return err
		}
		txLog.Infof("新订单 side=%s price=%v size=%v", ev.Side, ev.PriceValue(), ev.SizeValue())
		return syncgroup.Go(ctx,
			func(context.Context) error {
				h.orders.Add(ev.ToOrder())
				return nil
			},
			h.portfolio.Sync,
		)

	case domain.EventExecution:
		if err := validateTrade(ev); err != nil {
			return err
		}
		return h.execute(ctx, ev, txLog)

	case domain.EventCancel:
		if err := requireAcceptanceID(ev); err != nil {
			return err
		}
		if _, ok := h.orders.Cancel(ev.ChildOrderAcceptanceID); !ok {
			txLog.Debug("撤单事件没有匹配的 ACTIVE 订单")
		}
		txLog.Info("订单已撤销")
		return nil

	case domain.EventExpire:
		if err := requireAcceptanceID(ev); err != nil {
			return err
		}
		h.orders.Expire(ev.ChildOrderAcceptanceID)
		txLog.Info("订单已过期")
		return nil

	case domain.EventOrderFailed:
		txLog.Warnf("下单失败 reason=%s", ev.Reason)
		return nil

	case domain.EventCancelFailed:
		if err := requireAcceptanceID(ev); err != nil {
			return err
		}
		txLog.Warn("撤单失败")
		return nil

	default:
		return faults.Transaction("child_order_event", "unknown event type %q", ev.EventType)
	}
}

// execute 订单账本、持仓结算、账户同步并发进行，全部结束后记账
func (h *ChildOrderEventHandler) execute(ctx context.Context, ev domain.ChildOrderEvent, txLog *logrus.Entry) error {
	var (
		pnl     float64
		matched bool
	)
	err := syncgroup.Go(ctx,
		func(context.Context) error {
			_, matched = h.orders.Execute(ev.ChildOrderAcceptanceID)
			return nil
		},
		func(context.Context) error {
			pnl = h.positions.AddAndSettle(ev.ToFill())
			return nil
		},
		h.portfolio.Sync,
	)
	metrics.Executions.Add(1)
	if h.pnlSink != nil && pnl != 0 {
		h.pnlSink.AddPnL(pnl)
	}

	txLog.WithFields(logrus.Fields{
		"side":         ev.Side,
		"price":        ev.PriceValue(),
		"size":         ev.SizeValue(),
		"realized_pnl": pnl,
		"matched":      matched,
	}).Info("成交")

	if h.recorder != nil {
		rec := journal.Execution{
			ChildOrderAcceptanceID: ev.ChildOrderAcceptanceID,
			ProductCode:            ev.ProductCode,
			Side:                   ev.Side,
			Price:                  ev.PriceValue(),
			Size:                   ev.SizeValue(),
			Commission:             ev.Commission,
			RealizedPnL:            pnl,
			ExecutedAt:             eventTime(ev.EventDate),
		}
		if rerr := h.recorder.Record(ctx, rec); rerr != nil {
			txLog.Warnf("写入成交流水失败: %v", rerr)
		}
	}
	return err
}

func requireAcceptanceID(ev domain.ChildOrderEvent) error {
	if ev.ChildOrderAcceptanceID == "" {
		return faults.Transaction("child_order_event", "%s event missing child_order_acceptance_id", ev.EventType)
	}
	return nil
}

// validateTrade ORDER / EXECUTION 需要 acceptance id、方向、价格和数量
func validateTrade(ev domain.ChildOrderEvent) error {
	if err := requireAcceptanceID(ev); err != nil {
		return err
	}
	if !ev.Side.Valid() {
		return faults.Transaction("child_order_event", "%s event %s has invalid side %q", ev.EventType, ev.ChildOrderAcceptanceID, ev.Side)
	}
	if ev.Price == nil || ev.Size == nil {
		return faults.Transaction("child_order_event", "%s event %s missing price or size", ev.EventType, ev.ChildOrderAcceptanceID)
	}
	return nil
}

func eventTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Now()
}
