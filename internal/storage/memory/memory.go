// Package memory is an in-process storage backend. State is lost on restart;
// it suits local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/tumioparbe/web/internal/storage"
)

// Backend keeps namespaces in a map guarded by a RWMutex
type Backend struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// New creates an empty memory backend
func New() *Backend {
	return &Backend{data: make(map[string]map[string][]byte)}
}

func (b *Backend) Get(_ context.Context, namespace, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[namespace][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *Backend) Set(_ context.Context, namespace, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ns, ok := b.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		b.data[namespace] = ns
	}
	v := make([]byte, len(value))
	copy(v, value)
	ns[key] = v
	return nil
}

func (b *Backend) Delete(_ context.Context, namespace, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ns, ok := b.data[namespace]
	if !ok {
		return nil
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(b.data, namespace)
	}
	return nil
}

func (b *Backend) Close() error { return nil }
