package services

import (
	"sync"

	"github.com/betbot/flyerbot/internal/domain"
)

// DataBuffer 定长的板快照缓冲区，满了丢弃最旧的
type DataBuffer struct {
	mu   sync.RWMutex
	buf  []domain.BoardSnapshot
	head int
	size int
}

// NewDataBuffer 创建缓冲区，capacity <= 0 时按 1 处理
func NewDataBuffer(capacity int) *DataBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &DataBuffer{buf: make([]domain.BoardSnapshot, capacity)}
}

// Append 追加一条快照
func (d *DataBuffer) Append(s domain.BoardSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := (d.head + d.size) % len(d.buf)
	d.buf[idx] = s
	if d.size < len(d.buf) {
		d.size++
		return
	}
	d.head = (d.head + 1) % len(d.buf)
}

// Data 按时间顺序返回副本
func (d *DataBuffer) Data() []domain.BoardSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.BoardSnapshot, d.size)
	for i := 0; i < d.size; i++ {
		out[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	return out
}

// Latest 最新一条
func (d *DataBuffer) Latest() (domain.BoardSnapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.size == 0 {
		return domain.BoardSnapshot{}, false
	}
	return d.buf[(d.head+d.size-1)%len(d.buf)], true
}

func (d *DataBuffer) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

func (d *DataBuffer) Cap() int {
	return len(d.buf)
}
