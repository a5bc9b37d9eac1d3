package util

import "errors"

// ErrKVNotFound is returned by KVStore.Get when the key does not exist.
var ErrKVNotFound = errors.New("not found")

// KVStore is an interface to a simple key-value store used for local state
// persistence.
type KVStore interface {
	// Get returns the data for given key. If key is not found, return nil, ErrKVNotFound
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
	Del(key string) error
	Init() error
}
