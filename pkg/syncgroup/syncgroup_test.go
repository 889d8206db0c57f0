package syncgroup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGo_WaitsForAll 所有函数完成后才返回
func TestGo_WaitsForAll(t *testing.T) {
	var done atomic.Int32
	slow := func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		done.Add(1)
		return nil
	}
	require.NoError(t, Go(context.Background(), slow, slow, slow))
	assert.Equal(t, int32(3), done.Load())
}

// TestGo_CollectsErrors 汇总多个错误，errors.Is 可以找到每一个
func TestGo_CollectsErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	err := Go(context.Background(),
		func(context.Context) error { return errA },
		func(context.Context) error { return nil },
		func(context.Context) error { return errB },
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

// TestGo_RecoversPanic panic 转换为 PanicError
func TestGo_RecoversPanic(t *testing.T) {
	err := Go(context.Background(), func(context.Context) error { panic("boom") })
	var p *PanicError
	require.ErrorAs(t, err, &p)
	assert.Equal(t, "boom", p.Value)
}

// TestSyncGroup_Reusable Wait 之后可以再次 Add/Run
func TestSyncGroup_Reusable(t *testing.T) {
	g := NewSyncGroup()
	g.Add(func(context.Context) error { return errors.New("first") })
	g.Run(context.Background())
	require.Error(t, g.Wait())

	g.Add(func(context.Context) error { return nil })
	g.Run(context.Background())
	assert.NoError(t, g.Wait())
}
