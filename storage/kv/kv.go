// Package kv opens the key-value store configured for the app.
package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	inmemkv "github.com/trezcool/roster/storage/kv/inmem"
	rediskv "github.com/trezcool/roster/storage/kv/redis"
	sqlitekv "github.com/trezcool/roster/storage/kv/sqlite"
)

// Engines
const (
	EngineMemory = "memory"
	EngineRedis  = "redis"
	EngineSQLite = "sqlite"
)

var ErrUnknownEngine = errors.New("unknown kv engine")

// Open opens the store selected by conf.KV.Engine.
func Open(conf *core.Config) (core.KVStore, error) {
	switch conf.KV.Engine {
	case EngineMemory, "":
		return inmemkv.Open(), nil
	case EngineRedis:
		db, err := rediskv.Open(conf.KV.RedisURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err = db.WaitReady(ctx, 30); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case EngineSQLite:
		return sqlitekv.Open(conf.KV.SQLitePath)
	default:
		return nil, errors.Wrapf(ErrUnknownEngine, "%q", conf.KV.Engine)
	}
}
