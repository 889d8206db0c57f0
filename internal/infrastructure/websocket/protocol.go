package websocket

import (
	"encoding/json"
	"fmt"
)

// 实时 API 是 JSON-RPC 2.0
const (
	methodSubscribe      = "subscribe"
	methodAuth           = "auth"
	methodChannelMessage = "channelMessage"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type subscribeParams struct {
	Channel string `json:"channel"`
}

type authParams struct {
	APIKey    string `json:"api_key"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// rpcMessage 服务端下发的消息：频道推送或请求响应
type rpcMessage struct {
	ID     *int64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type channelParams struct {
	Channel string          `json:"channel"`
	Message json.RawMessage `json:"message"`
}

// frame 一条待分发的频道消息
type frame struct {
	channel string
	message json.RawMessage
}

// parseFrame 解析频道推送；不是频道推送时 ok 为 false。
// 只要求 params 带 channel 和 message，method 可以省略。
func parseFrame(msg rpcMessage) (frame, bool) {
	if msg.Method != "" && msg.Method != methodChannelMessage {
		return frame{}, false
	}
	if len(msg.Params) == 0 {
		return frame{}, false
	}
	var p channelParams
	if err := json.Unmarshal(msg.Params, &p); err != nil || p.Channel == "" || len(p.Message) == 0 {
		return frame{}, false
	}
	return frame{channel: p.Channel, message: p.Message}, true
}
