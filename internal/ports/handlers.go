package ports

import (
	"context"
	"encoding/json"
)

// MessageHandler 处理实时 API 某些频道的消息
//
// NOTE: 定义在中立的 ports 包中，避免 dispatch / handlers / websocket 之间的循环依赖。
type MessageHandler interface {
	// Channels 返回该 handler 关心的频道名
	Channels() []string
	// HandleMessage 处理一条消息；返回的错误由调度器统一记录
	HandleMessage(ctx context.Context, data json.RawMessage, channel string) error
}

// Dispatcher 把 (channel, message) 交给匹配的 handler
type Dispatcher interface {
	Dispatch(ctx context.Context, data json.RawMessage, channel string) error
}
