package storage

import (
	"fmt"
	"sort"
	"sync"

	"filevault/internal/config"
)

// Factory builds a Storage from configuration.
type Factory func(cfg config.StorageConfig) (Storage, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("minio", NewMinIO)
	Register("s3", NewS3)
	Register("memory", func(cfg config.StorageConfig) (Storage, error) {
		return NewMemory(cfg), nil
	})
}

// Register makes a backend available under name. Registering a name twice replaces it.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the backend selected by cfg.Backend. It is called once at startup.
func New(cfg config.StorageConfig) (Storage, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown object store backend %q (available: %v)", cfg.Backend, Backends())
	}
	return f(cfg)
}
