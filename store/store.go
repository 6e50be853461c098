// Package store provides the namespaced key-value storage consumed by
// actor instances. Records are addressed by "{kind}:{id}" keys; every
// write replaces the whole record.
package store

import "context"

// Record is a single key-value entry returned by List.
type Record struct {
	Key   string
	Value []byte
}

// KV is a durable key-value store bound to a single namespace.
// Get returns (nil, nil) when the key is absent.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// List returns all records whose key starts with prefix,
	// ordered by key ascending.
	List(ctx context.Context, prefix string) ([]Record, error)
}

// Engine creates namespace-bound KV views over a shared backing store.
// Each actor instance owns exactly one namespace.
type Engine interface {
	Namespace(ns string) KV
	Close() error
}
