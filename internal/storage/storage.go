// Package storage is the server-side replacement for the browser's local
// storage: a small key/value space per browser, identified by the opaque
// browser id carried in the sid cookie.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("storage: key not found")

// Backend stores values grouped by namespace (one namespace per browser).
type Backend interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Storage is a Backend bound to a single namespace.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type scoped struct {
	backend   Backend
	namespace string
}

// Scope binds backend to namespace.
func Scope(backend Backend, namespace string) Storage {
	return &scoped{backend: backend, namespace: namespace}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, s.namespace, key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.backend.Set(ctx, s.namespace, key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.namespace, key)
}

// GetJSON decodes the value at key into v. It returns ErrNotFound when the
// key is unset and a wrapped decode error when the value is malformed.
func GetJSON(ctx context.Context, s Storage, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Storage, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
