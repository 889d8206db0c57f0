package agent

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrDuplicateInFlight 同一 key 的动作仍在 TTL 窗口内
var ErrDuplicateInFlight = errors.New("duplicate in-flight")

// InFlightDeduper 短时间窗口内的确定性去重，防止连续触发重复下单/撤单
type InFlightDeduper struct {
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
	m  map[string]time.Time // key -> expiresAt
}

// NewInFlightDeduper ttl <= 0 时默认 2 秒
func NewInFlightDeduper(ttl time.Duration) *InFlightDeduper {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &InFlightDeduper{ttl: ttl, now: time.Now, m: make(map[string]time.Time)}
}

// TryAcquire 获取 key 的令牌，窗口内重复获取返回 ErrDuplicateInFlight
func (d *InFlightDeduper) TryAcquire(key string) error {
	if d == nil || key == "" {
		return nil
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	// 惰性清理
	for k, exp := range d.m {
		if !exp.After(now) {
			delete(d.m, k)
		}
	}
	if _, ok := d.m[key]; ok {
		return ErrDuplicateInFlight
	}
	d.m[key] = now.Add(d.ttl)
	return nil
}

// Release 失败时提前释放
func (d *InFlightDeduper) Release(key string) {
	if d == nil || key == "" {
		return
	}
	d.mu.Lock()
	delete(d.m, key)
	d.mu.Unlock()
}
