// Package reportstore persists immutable report snapshots as JSON blobs keyed by name.
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"posbackend/internal/config"
)

var (
	// ErrNotFound is returned by Get when no snapshot exists under the key.
	ErrNotFound = errors.New("report snapshot not found")
	// ErrExists is returned by Put when the key is already taken. Snapshots are never replaced.
	ErrExists = errors.New("report snapshot already exists")
)

// Store is a flat key/blob store. Keys never contain path separators.
type Store interface {
	// Put stores data under a new key and fails with ErrExists if the key is taken.
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys starting with prefix, sorted descending.
	List(ctx context.Context, prefix string) ([]string, error)
}

// New builds the store selected by configuration.
func New(cfg *config.Config) (Store, error) {
	switch cfg.Reports.Store {
	case "file":
		return NewFileStore(cfg.Reports.Dir)
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3StoreFromConfig(cfg.AWS)
	default:
		return nil, fmt.Errorf("unknown report store %q", cfg.Reports.Store)
	}
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("invalid report key %q", key)
	}
	return nil
}

func sortDescending(keys []string) []string {
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}
