package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/dashauth/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// OpenStore opens the configured backend. The returned close function
// releases it.
func OpenStore(ctx context.Context, s Store) (kv.Store, func() error, error) {
	switch s.Backend {
	case BackendSQLite:
		db, err := kv.OpenSQLite(ctx, s.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		store := kv.NewRedis(client)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", s.RedisAddr, err)
		}
		return store, client.Close, nil

	case BackendMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return kv.NewRedis(client), func() error {
			err := client.Close()
			mr.Close()
			return err
		}, nil

	case BackendMemory:
		return kv.NewMemory(), func() error { return nil }, nil
	}
	return nil, nil, errors.New("unknown store backend " + s.Backend)
}
