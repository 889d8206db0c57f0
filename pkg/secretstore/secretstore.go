// Package secretstore 用 badger 加密存储 API 凭证
package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// EnvPrefix 以环境变量名保存时使用的前缀
const EnvPrefix = "env/"

// Store is a small encrypted-at-rest KV wrapper (Badger).
// Encryption is provided by Badger options, not by this wrapper.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil 表示不加密
	ReadOnly      bool
}

func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// 加密模式下 badger 需要 index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(16 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "secretstore: open %s", opts.Path)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetString 第二个返回值表示 key 是否存在
func (s *Store) GetString(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return "", false, errors.New("secretstore: key is empty")
	}
	var (
		out   string
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "secretstore: get %s", key)
	}
	return out, found, nil
}

func (s *Store) SetString(key string, val string) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return errors.New("secretstore: key is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
}

// ParseKey 接受 32 字节的 hex（可带 0x）或 base64；空字符串返回 nil
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	return b, nil
}
