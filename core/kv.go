package core

import "context"

// KVStore is a plain key-value store. Values are opaque bytes.
type KVStore interface {
	// Get returns ErrKeyNotFound when the key is not set.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete ignores missing keys.
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
