package storage

import (
	"context"
	"errors"
)

// Storage is a persistent key-value store holding serialized documents.
// Consumers define what the values mean, storage only keeps strings.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

var ErrKeyNotFound = errors.New("key not found")
