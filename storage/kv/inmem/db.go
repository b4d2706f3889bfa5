package inmemkv

import (
	"context"
	"sync"

	"github.com/trezcool/roster/core"
)

type DB struct {
	sync.RWMutex
	table map[string][]byte
}

var _ core.KVStore = (*DB)(nil)

func Open() *DB {
	return &DB{table: make(map[string][]byte)}
}

func (db *DB) Get(_ context.Context, key string) ([]byte, error) {
	db.RLock()
	defer db.RUnlock()

	val, ok := db.table[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	return append([]byte(nil), val...), nil
}

func (db *DB) Set(_ context.Context, key string, value []byte) error {
	db.Lock()
	defer db.Unlock()

	db.table[key] = append([]byte(nil), value...)
	return nil
}

func (db *DB) Delete(_ context.Context, keys ...string) error {
	db.Lock()
	defer db.Unlock()

	for _, key := range keys {
		delete(db.table, key)
	}
	return nil
}

func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) Close() error { return nil }
