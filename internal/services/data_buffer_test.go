package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/betbot/flyerbot/internal/domain"
)

func snapshotAt(mid float64) domain.BoardSnapshot {
	return domain.BoardSnapshot{MidPrice: mid}
}

// TestDataBuffer_DropOldest 超出容量时丢弃最旧的
func TestDataBuffer_DropOldest(t *testing.T) {
	b := NewDataBuffer(3)
	_, ok := b.Latest()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		b.Append(snapshotAt(float64(i)))
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 3, b.Cap())

	var mids []float64
	for _, s := range b.Data() {
		mids = append(mids, s.MidPrice)
	}
	assert.Equal(t, []float64{3, 4, 5}, mids)

	latest, ok := b.Latest()
	assert.True(t, ok)
	assert.Equal(t, 5.0, latest.MidPrice)
}

// TestDataBuffer_ZeroCapacity 容量非法时按 1 处理
func TestDataBuffer_ZeroCapacity(t *testing.T) {
	b := NewDataBuffer(0)
	b.Append(snapshotAt(1))
	b.Append(snapshotAt(2))
	assert.Equal(t, []domain.BoardSnapshot{snapshotAt(2)}, b.Data())
}
