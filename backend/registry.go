package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a new backend instance.
type Factory func(cfg Config) (DisplayBackend, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// The terminal backend needs a tty, so it is never picked by default.
	backendPriority = []string{BackendHeadless}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get creates the backend registered under name.
func Get(name string, cfg Config) (DisplayBackend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return factory(cfg)
}

// Default creates the best available backend based on priority, falling
// back to any registered backend in name order.
func Default(cfg Config) (DisplayBackend, error) {
	names := append([]string(nil), backendPriority...)
	names = append(names, Available()...)

	var lastErr error = ErrBackendNotAvailable
	for _, name := range names {
		if !IsRegistered(name) {
			continue
		}
		b, err := Get(name, cfg)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
