package handlers

import (
	"context"
	"encoding/json"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/internal/services"
)

// BoardChannel 产品对应的板快照频道
func BoardChannel(productCode string) string {
	return "lightning_board_snapshot_" + productCode
}

// Trigger 收到新快照后通知决策
type Trigger interface {
	Trigger() bool
}

// BoardEventHandler 把板快照写入缓冲区并触发 agent
type BoardEventHandler struct {
	channels []string
	buffer   *services.DataBuffer
	trigger  Trigger
}

var _ ports.MessageHandler = (*BoardEventHandler)(nil)

// NewBoardEventHandler trigger 可以为 nil
func NewBoardEventHandler(productCode string, buffer *services.DataBuffer, trigger Trigger) *BoardEventHandler {
	return &BoardEventHandler{
		channels: []string{BoardChannel(productCode)},
		buffer:   buffer,
		trigger:  trigger,
	}
}

func (h *BoardEventHandler) Channels() []string { return h.channels }

func (h *BoardEventHandler) HandleMessage(_ context.Context, data json.RawMessage, _ string) error {
	snapshots, err := decodeOneOrMany[domain.BoardSnapshot]("board_event", data)
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		h.buffer.Append(s)
	}
	if h.trigger != nil && len(snapshots) > 0 {
		h.trigger.Trigger()
	}
	return nil
}
