// Package kv holds the persistent key-value slots shared by every signroll
// instance on a machine. A slot is a single named value; writers bump its
// revision so other instances can notice the change without a push.
package kv

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("kv: store closed")

// Store is the capability the roster layer persists through.
type Store interface {
	// Get returns the slot value. ok is false when the slot was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put replaces the slot value and advances its revision.
	Put(ctx context.Context, key string, value []byte) error
	// Revision reports how many times the slot has been written; 0 if absent.
	Revision(ctx context.Context, key string) (int64, error)
	Close() error
}

// Memory is an in-process Store. Instances sharing one *Memory behave like
// processes sharing one database file.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	revs   map[string]int64
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: map[string][]byte{},
		revs:   map[string]int64{},
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	value, ok := m.values[normalizeKey(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key = normalizeKey(key)
	if key == "" {
		return errEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = append([]byte(nil), value...)
	m.revs[key]++
	return nil
}

func (m *Memory) Revision(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return m.revs[normalizeKey(key)], nil
}

// Close marks the store unusable. Data is discarded with the value.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var errEmptyKey = errors.New("kv: key is required")

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}
