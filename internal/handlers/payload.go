// Package handlers 实现实时 API 各频道的消息处理
package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/betbot/flyerbot/internal/faults"
)

// decodeOneOrMany 频道消息可能是单个对象也可能是数组
func decodeOneOrMany[T any](op string, data json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, faults.Transaction(op, "empty message")
	}
	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, faults.Transaction(op, "decode array: %v", err)
		}
		return out, nil
	}
	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, faults.Transaction(op, "decode object: %v", err)
	}
	return []T{one}, nil
}
