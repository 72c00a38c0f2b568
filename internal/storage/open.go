package storage

import (
	"context"
	"fmt"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// Options selects and configures a storage driver.
type Options struct {
	Driver string

	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	MongoURI string
	MongoDB  string
}

// Open connects the storage backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStorage(), nil
	case DriverSQLite:
		return NewSQLiteStorage(opts.SQLitePath)
	case DriverRedis:
		client, err := ConnectRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewRedisStorage(client, opts.RedisPrefix), nil
	case DriverMongo:
		db, err := ConnectMongoDB(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		return NewMongoStorage(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
