// Package dispatch 把实时 API 的频道消息路由给对应的 handler
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/logger"
	"github.com/betbot/flyerbot/pkg/syncgroup"
)

var dispatchLog = logrus.WithField("component", "dispatcher")

// Dispatcher 按频道名扇出到 handler，同一条消息的多个 handler 并发执行
type Dispatcher struct {
	handlers []ports.MessageHandler
	routes   map[string][]ports.MessageHandler
}

var _ ports.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher 创建调度器；nil handler 或没有频道的 handler 视为装配错误
func NewDispatcher(handlers ...ports.MessageHandler) (*Dispatcher, error) {
	d := &Dispatcher{routes: make(map[string][]ports.MessageHandler)}
	for i, h := range handlers {
		if h == nil {
			return nil, faults.Logic("dispatch.new", "handler #%d is nil", i)
		}
		channels := h.Channels()
		if len(channels) == 0 {
			return nil, faults.Logic("dispatch.new", "handler %T has no channels", h)
		}
		d.handlers = append(d.handlers, h)
		for _, ch := range channels {
			d.routes[ch] = append(d.routes[ch], h)
		}
	}
	return d, nil
}

// Channels 所有 handler 关心的频道
func (d *Dispatcher) Channels() []string {
	out := make([]string, 0, len(d.routes))
	for ch := range d.routes {
		out = append(out, ch)
	}
	return out
}

// Dispatch 把消息交给订阅了 channel 的所有 handler
//
// handler 返回的错误在这里记录一次后丢弃，只有 LogicFault（含 handler panic）会返回给调用方。
// 没有 handler 关心的频道直接忽略。
func (d *Dispatcher) Dispatch(ctx context.Context, data json.RawMessage, channel string) error {
	matched := d.routes[channel]
	if len(matched) == 0 {
		return nil
	}
	metrics.FramesDispatched.Add(1)

	g := syncgroup.NewSyncGroup()
	for _, h := range matched {
		if h == nil {
			return faults.Logic("dispatch", "nil handler registered for channel %s", channel)
		}
		h := h
		g.Add(func(ctx context.Context) error {
			if err := h.HandleMessage(ctx, data, channel); err != nil {
				return d.report(h, channel, err)
			}
			return nil
		})
	}
	g.Run(ctx)
	err := g.Wait()
	var panicErr *syncgroup.PanicError
	if errors.As(err, &panicErr) {
		return faults.Logic("dispatch", "handler for %s %v", channel, panicErr)
	}
	return err
}

// report 记录 handler 错误，返回需要上抛的部分
func (d *Dispatcher) report(h ports.MessageHandler, channel string, err error) error {
	handler := fmt.Sprintf("%T", h)
	switch faults.KindOf(err) {
	case faults.KindLogic:
		return err
	case faults.KindTransaction:
		metrics.TransactionFaults.Add(1)
		logger.Transaction().WithFields(logrus.Fields{
			"handler": handler,
			"channel": channel,
		}).Errorf("交易事件处理失败: %v", err)
	default:
		dispatchLog.WithField("handler", handler).Warnf("处理 %s 消息失败: %v", channel, err)
	}
	return nil
}
