package sigchan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChan_CoalescesAndWakes(t *testing.T) {
	c := New()
	c.Emit()
	c.Emit()
	assert.True(t, c.Wait(context.Background(), time.Second))
	assert.False(t, c.Wait(context.Background(), 10*time.Millisecond))
}

func TestChan_DrainAndCancel(t *testing.T) {
	c := New()
	c.Emit()
	c.Drain()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, c.Wait(ctx, time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}
