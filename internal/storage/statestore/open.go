// Package statestore picks the sync state backend named by STATE_BACKEND.
package statestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	redisad "playreviews/internal/adapters/redis"
	"playreviews/internal/domain"
	"playreviews/internal/shared"
	badgerstore "playreviews/internal/storage/badger"
	"playreviews/internal/storage/dynamo"
	mysqlrepo "playreviews/internal/storage/mysql"
)

// Open returns the configured store and a func releasing it.
// The badger backend holds a directory lock, so only one process can open it.
func Open(ctx context.Context, cfg shared.Config, db *sql.DB, rdb *redis.Client) (domain.StateStore, func() error, error) {
	nop := func() error { return nil }
	switch cfg.StateBackend {
	case "mysql":
		return mysqlrepo.NewStateStore(db), nop, nil
	case "redis":
		return redisad.NewStateStore(rdb, ""), nop, nil
	case "badger":
		st, err := badgerstore.Open(cfg.BadgerDir)
		if err != nil {
			return nil, nop, err
		}
		return st, st.Close, nil
	case "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nop, err
		}
		return dynamo.NewStateStore(client, cfg.DynamoTable), nop, nil
	default:
		return nil, nop, fmt.Errorf("%w: unknown state backend %q", domain.ErrInvalidConfig, cfg.StateBackend)
	}
}
