package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/betbot/flyerbot/pkg/logger"
)

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileService 每个快照一个 JSON 文件：<dir>/<prefix>/<id>/<tag>.json。
// 不需要 badger 目录的开发环境使用。
type FileService struct {
	dir string
	mu  sync.Mutex
}

// NewFileService 创建目录并返回服务
func NewFileService(dir string) (*FileService, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("persistence: snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create snapshot dir %s", dir)
	}
	return &FileService{dir: dir}, nil
}

// Close 没有需要释放的资源
func (s *FileService) Close() error { return nil }

// NewStore 创建新的存储
func (s *FileService) NewStore(prefix, id, tag string) Store {
	return &FileStore{
		svc:  s,
		key:  storeKey(prefix, id, tag),
		path: filepath.Join(s.dir, safeSegment(prefix), safeSegment(id), safeSegment(tag)+".json"),
	}
}

func safeSegment(s string) string {
	s = unsafeSegment.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// FileStore 单个 JSON 文件
type FileStore struct {
	svc  *FileService
	key  string
	path string
}

// Save 写临时文件、fsync 后 rename，读到的永远是完整快照
func (s *FileStore) Save(data interface{}) error {
	logger.Debugf("[persistence] file Save: key=%s", s.key)
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "encode %s", s.key)
	}

	s.svc.mu.Lock()
	defer s.svc.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", s.key)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", s.key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", s.key)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), s.path), "rename %s", s.key)
}

// Load 读取快照，文件不存在或为空时返回 ErrNotExists
func (s *FileStore) Load(data interface{}) error {
	logger.Debugf("[persistence] file Load: key=%s", s.key)
	s.svc.mu.Lock()
	b, err := os.ReadFile(s.path)
	s.svc.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotExists
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", s.key)
	}
	if len(b) == 0 {
		return ErrNotExists
	}
	return errors.Wrapf(json.Unmarshal(b, data), "decode %s", s.key)
}
