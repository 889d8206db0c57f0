package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/pkg/persistence"
)

var errExchangeDown = errors.New("503 service unavailable")

// fakeExchange 可编排返回值的交易所客户端
type fakeExchange struct {
	mu         sync.Mutex
	orders     []domain.Order
	positions  []domain.Position
	balances   []domain.Balance
	collateral domain.Collateral
	board      domain.BoardState
	err        error

	lastFilter domain.OrderFilter
	calls      atomic.Int32
}

func (f *fakeExchange) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeExchange) GetOrders(_ context.Context, _ string, filter domain.OrderFilter) ([]domain.Order, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Order(nil), f.orders...), nil
}

func (f *fakeExchange) GetPositions(context.Context, string) ([]domain.Position, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Position(nil), f.positions...), nil
}

func (f *fakeExchange) GetBalance(context.Context) ([]domain.Balance, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Balance(nil), f.balances...), nil
}

func (f *fakeExchange) GetCollateral(context.Context) (domain.Collateral, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collateral, f.err
}

func (f *fakeExchange) GetBoardState(context.Context, string) (domain.BoardState, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.board, f.err
}

// fakeStream 记录暂停状态的 stream
type fakeStream struct {
	paused  atomic.Bool
	pauses  atomic.Int32
	resumes atomic.Int32
}

func (s *fakeStream) Pause()       { s.paused.Store(true); s.pauses.Add(1) }
func (s *fakeStream) Resume()      { s.paused.Store(false); s.resumes.Add(1) }
func (s *fakeStream) Paused() bool { return s.paused.Load() }

// newFileStore 临时目录下的文件快照
func newFileStore(t *testing.T, tag string) persistence.Store {
	t.Helper()
	svc, err := persistence.NewFileService(t.TempDir())
	require.NoError(t, err)
	return svc.NewStore("ledger", "FX_BTC_JPY", tag)
}
