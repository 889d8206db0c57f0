// Package agent 是决策模型的边界：根据账本和板信息给出动作，再由 Executor 落到交易所
package agent

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/betbot/flyerbot/internal/domain"
)

// State 一次决策可见的全部信息
type State struct {
	Board        []domain.BoardSnapshot
	Portfolio    domain.PortfolioSnapshot
	ActiveOrders []domain.Order
	Positions    []domain.Position
}

// Latest 最新的板快照
func (s State) Latest() (domain.BoardSnapshot, bool) {
	if len(s.Board) == 0 {
		return domain.BoardSnapshot{}, false
	}
	return s.Board[len(s.Board)-1], true
}

// Agent 决策模型；特征提取与推理都在实现内部完成
type Agent interface {
	Decide(ctx context.Context, state State) (Action, error)
}

// Hold 永远不动作
type Hold struct{}

func (Hold) Decide(context.Context, State) (Action, error) {
	return ActionDoNothing, nil
}

// Random 均匀随机选择动作
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seed 为 0 时按当前时间
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Decide(context.Context, State) (Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Actions[r.rng.Intn(len(Actions))], nil
}

// New 按名称创建 agent
func New(kind string, seed int64) (Agent, error) {
	switch kind {
	case "", "hold":
		return Hold{}, nil
	case "random":
		return NewRandom(seed), nil
	default:
		return nil, errors.Errorf("unknown agent kind %q", kind)
	}
}
