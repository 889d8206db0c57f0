// Package faults 定义三类错误：逻辑错误、事务错误、交易所错误。
// 错误本身不记录日志，由调度器或循环驱动在边界处统一记录一次。
package faults

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind 错误类别
type Kind int

const (
	// KindLogic 编程或配置错误，不可恢复
	KindLogic Kind = iota + 1
	// KindTransaction 事件内容缺失或格式错误，事件被丢弃
	KindTransaction
	// KindExchange REST 调用失败，下一次调度重试
	KindExchange
)

func (k Kind) String() string {
	switch k {
	case KindLogic:
		return "LogicFault"
	case KindTransaction:
		return "TransactionFault"
	case KindExchange:
		return "ExchangeFault"
	default:
		return "UnknownFault"
	}
}

// Fault 带类别和操作名的错误
type Fault struct {
	Kind Kind
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Cause 兼容 pkg/errors.Cause
func (f *Fault) Cause() error { return f.Err }

// Logic 构造逻辑错误
func Logic(op, format string, args ...any) error {
	return &Fault{Kind: KindLogic, Op: op, Err: errors.Errorf(format, args...)}
}

// Transaction 构造事务错误
func Transaction(op, format string, args ...any) error {
	return &Fault{Kind: KindTransaction, Op: op, Err: errors.Errorf(format, args...)}
}

// Exchange 包装交易所调用错误，err 为 nil 时返回 nil
func Exchange(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) && f.Kind == KindExchange {
		return err
	}
	return &Fault{Kind: KindExchange, Op: op, Err: errors.WithStack(err)}
}

// KindOf 返回错误链上第一个 Fault 的类别，非 Fault 返回 0
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

func IsLogic(err error) bool       { return KindOf(err) == KindLogic }
func IsTransaction(err error) bool { return KindOf(err) == KindTransaction }
func IsExchange(err error) bool    { return KindOf(err) == KindExchange }
