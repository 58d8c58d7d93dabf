// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package store

import (
	"sort"
	"sync"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// DefaultVectorDimensions is the default embedding dimension (matches OpenAI text-embedding-ada-002).
const DefaultVectorDimensions = 1536

// Factory creates a PlayStore for a resolved configuration. The config it
// receives always has a positive VectorDimensions.
type Factory func(cfg StorageConfig) (PlayStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// New creates the PlayStore for cfg.
func New(cfg StorageConfig) (PlayStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, pberr.New(pberr.CodeStoreBackendUnsupported,
			"unsupported storage backend: "+backend, pberr.FieldBackend(backend))
	}

	cfg.Backend = backend
	if cfg.VectorDimensions <= 0 {
		cfg.VectorDimensions = DefaultVectorDimensions
	}

	return factory(cfg)
}
