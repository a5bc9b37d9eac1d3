package util

import (
	"os"
	"path/filepath"
	"strings"
)

// fileStore is a KVStore keeping each key in its own file under a base
// directory. It is the default session store backend.
type fileStore struct {
	dir string
}

// NewFileStore returns a KVStore backed by files under dir.
func NewFileStore(dir string) KVStore {
	return &fileStore{dir: dir}
}

func (s *fileStore) Init() error {
	return os.MkdirAll(s.dir, 0700)
}

func (s *fileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKVNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *fileStore) Set(key string, data []byte) error {
	return os.WriteFile(s.path(key), data, 0600)
}

func (s *fileStore) Del(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *fileStore) path(key string) string {
	// keys are simple identifiers; strip separators to keep them inside dir
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, key)
}
