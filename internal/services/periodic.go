package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/betbot/flyerbot/pkg/sigchan"
)

// 服务自身暂停时的轮询间隔
const pausedPollInterval = time.Second

// periodic 可暂停的定时循环，Batch 和 HealthCheck 共用
type periodic struct {
	interval     time.Duration
	pollInterval time.Duration
	paused       atomic.Bool
	resumeC      *sigchan.Chan
}

func newPeriodic(interval time.Duration) *periodic {
	return &periodic{
		interval:     interval,
		pollInterval: pausedPollInterval,
		resumeC:      sigchan.New(),
	}
}

func (p *periodic) Pause() { p.paused.Store(true) }

func (p *periodic) Resume() {
	p.paused.Store(false)
	p.resumeC.Emit()
}

func (p *periodic) Paused() bool { return p.paused.Load() }

// run 每轮把 tick 和 interval 的等待并发进行，两者都结束才进入下一轮；
// 暂停时按 pollInterval 轮询，Resume 会提前唤醒
func (p *periodic) run(ctx context.Context, tick func(ctx context.Context)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.paused.Load() {
			p.resumeC.Wait(ctx, p.pollInterval)
			continue
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			tick(ctx)
		}()

		timer := time.NewTimer(p.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		<-done
	}
}
