package persistence

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// 快照后端
const (
	BackendBadger = "badger"
	BackendFile   = "json"
)

// Service 按 prefix/id/tag 分配 Store，所有 Store 共用底层资源
type Service interface {
	NewStore(prefix, id, tag string) Store
	Close() error
}

// Store 单个快照的读写
type Store interface {
	Save(data interface{}) error
	Load(data interface{}) error
}

// ErrNotExists 快照不存在（或为空）
var ErrNotExists = errors.New("persistence data not exists")

func storeKey(prefix, id, tag string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, id, tag)
}

// Open 按后端名打开快照服务；空名按 badger 处理
func Open(backend, dir string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendBadger:
		return OpenBadger(dir)
	case BackendFile:
		return NewFileService(dir)
	default:
		return nil, errors.Errorf("persistence: unknown backend %q", backend)
	}
}
