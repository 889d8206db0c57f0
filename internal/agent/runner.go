package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var runnerLog = logrus.WithField("component", "agent_runner")

const defaultStepTimeout = 10 * time.Second

// StateFunc 决策前收集状态
type StateFunc func() State

// Runner 串行执行 agent：上一步未结束时新的触发直接跳过
type Runner struct {
	agent    Agent
	executor *Executor
	state    StateFunc
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	running atomic.Bool
	skipped atomic.Int64

	// mu 保证 closed 检查与 wg.Add 不会和 Close 中的 wg.Wait 交错
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner 创建 runner
func NewRunner(agent Agent, executor *Executor, state StateFunc) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		agent:    agent,
		executor: executor,
		state:    state,
		timeout:  defaultStepTimeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Trigger 异步执行一步；已有一步在执行时返回 false
func (r *Runner) Trigger() bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	if !r.running.CompareAndSwap(false, true) {
		r.mu.Unlock()
		r.skipped.Add(1)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		if err := r.Step(ctx); err != nil && ctx.Err() == nil {
			runnerLog.Warnf("🤖 [agent] 执行失败: %v", err)
		}
	}()
	return true
}

// Step 同步执行一步：收集状态、决策、执行
func (r *Runner) Step(ctx context.Context) error {
	state := r.state()
	action, err := r.agent.Decide(ctx, state)
	if err != nil {
		return err
	}
	return r.executor.Execute(ctx, action, state)
}

// Skipped 因上一步未结束而跳过的触发次数
func (r *Runner) Skipped() int64 {
	return r.skipped.Load()
}

// Close 取消进行中的步骤并等待退出
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
