package syncgroup

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

type syncGroupFunc func(ctx context.Context) error

// SyncGroup 是 sync.WaitGroup 的包装器：一组函数并发执行，Wait 汇总所有错误
// 自动管理 Add() 和 Done()，单个函数 panic 会被转换为错误而不是打断整组
type SyncGroup struct {
	wg sync.WaitGroup

	sgFuncsMu sync.Mutex
	sgFuncs   []syncGroupFunc

	errMu sync.Mutex
	errs  []error
}

// NewSyncGroup 创建新的 SyncGroup
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add 添加一个待执行函数，nil 忽略
func (w *SyncGroup) Add(fn syncGroupFunc) {
	if fn == nil {
		return
	}
	w.sgFuncsMu.Lock()
	defer w.sgFuncsMu.Unlock()
	w.sgFuncs = append(w.sgFuncs, fn)
}

// Run 启动所有已添加的函数，并清空待执行列表
func (w *SyncGroup) Run(ctx context.Context) {
	w.sgFuncsMu.Lock()
	fns := w.sgFuncs
	w.sgFuncs = nil
	w.sgFuncsMu.Unlock()

	w.wg.Add(len(fns))
	for _, fn := range fns {
		go func(doFunc syncGroupFunc) {
			defer w.wg.Done()
			if err := w.call(ctx, doFunc); err != nil {
				w.errMu.Lock()
				w.errs = append(w.errs, err)
				w.errMu.Unlock()
			}
		}(fn)
	}
}

func (w *SyncGroup) call(ctx context.Context, fn syncGroupFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

// Wait 等待所有函数完成，返回合并后的错误（全部成功时为 nil）
func (w *SyncGroup) Wait() error {
	w.wg.Wait()

	w.errMu.Lock()
	defer w.errMu.Unlock()
	errs := w.errs
	w.errs = nil
	return join(errs)
}

// Go 一次性并发执行 fns 并等待全部完成
func Go(ctx context.Context, fns ...func(ctx context.Context) error) error {
	g := NewSyncGroup()
	for _, fn := range fns {
		g.Add(fn)
	}
	g.Run(ctx)
	return g.Wait()
}

// PanicError 函数执行中的 panic
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// MultiError 多个并发函数的错误集合
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	s := fmt.Sprintf("%d errors:", len(m.Errors))
	for _, e := range m.Errors {
		s += " [" + e.Error() + "]"
	}
	return s
}

// Unwrap 支持 errors.Is / errors.As 遍历所有子错误
func (m *MultiError) Unwrap() []error { return m.Errors }

func join(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.WithStack(&MultiError{Errors: errs})
	}
}
