package storage

import (
	"context"
	"errors"
	"fmt"

	"WeeklyTop/internal/config"
	"WeeklyTop/internal/ports"
)

// ErrUnknownDriver is returned for a storage driver the factory does not know.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Store is a snapshot gateway that owns a connection.
type Store interface {
	ports.SnapshotStore
	Close() error
}

// Open builds the configured gateway.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverRedis:
		store, err := OpenRedis(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
