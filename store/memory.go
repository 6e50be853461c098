package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory KV engine for tests and ephemeral runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // ns -> key -> value
}

// NewMemory creates an empty in-memory engine.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

// Close is a no-op for the in-memory engine.
func (m *Memory) Close() error { return nil }

// Namespace returns a KV view bound to the given namespace.
func (m *Memory) Namespace(ns string) KV { return &memoryKV{m: m, ns: ns} }

type memoryKV struct {
	m  *Memory
	ns string
}

func (kv *memoryKV) Put(_ context.Context, key string, value []byte) error {
	kv.m.mu.Lock()
	defer kv.m.mu.Unlock()
	bucket := kv.m.data[kv.ns]
	if bucket == nil {
		bucket = make(map[string][]byte)
		kv.m.data[kv.ns] = bucket
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	bucket[key] = cp
	return nil
}

func (kv *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	kv.m.mu.RLock()
	defer kv.m.mu.RUnlock()
	v, ok := kv.m.data[kv.ns][key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (kv *memoryKV) Delete(_ context.Context, key string) error {
	kv.m.mu.Lock()
	defer kv.m.mu.Unlock()
	delete(kv.m.data[kv.ns], key)
	return nil
}

func (kv *memoryKV) List(_ context.Context, prefix string) ([]Record, error) {
	kv.m.mu.RLock()
	defer kv.m.mu.RUnlock()
	var recs []Record
	for k, v := range kv.m.data[kv.ns] {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		recs = append(recs, Record{Key: k, Value: cp})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
	return recs, nil
}
