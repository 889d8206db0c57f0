package persistence

import (
	"encoding/json"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/betbot/flyerbot/pkg/logger"
)

// BadgerService 基于 badger 的持久化服务，所有 Store 共用一个 DB
type BadgerService struct {
	db *badger.DB
}

// OpenBadger 打开（或创建）badger 目录
func OpenBadger(path string) (*BadgerService, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("persistence: badger path is required")
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, errors.Wrapf(err, "open badger %s", path)
	}
	return &BadgerService{db: db}, nil
}

// Close 关闭 DB
func (s *BadgerService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewStore 创建新的存储
func (s *BadgerService) NewStore(prefix, id, tag string) Store {
	return &BadgerStore{db: s.db, key: []byte(storeKey(prefix, id, tag))}
}

// BadgerStore 单个 key 的 JSON 值
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

// Save 保存数据
func (s *BadgerStore) Save(data interface{}) error {
	logger.Debugf("[persistence] badger Save: key=%s", s.key)
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, b)
	})
}

// Load 加载数据，key 不存在时返回 ErrNotExists
func (s *BadgerStore) Load(data interface{}) error {
	logger.Debugf("[persistence] badger Load: key=%s", s.key)
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotExists
	}
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(raw, data)
}
