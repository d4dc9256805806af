package accel

import (
	"sort"
	"sync"
)

// BackendFactory creates a new, uninitialized backend instance.
type BackendFactory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// FallbackBackend is the name of the CPU backend. Default only picks it when no
// other backend is registered.
const FallbackBackend = "software"

// Register registers a backend factory under name, replacing any previous one.
// Backend packages call it from init(), so that a blank import enables them:
//
//	import _ "github.com/akmonengine/tetquery/accel/software"
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
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

func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a new instance of the named backend, or nil.
func Get(name string) Backend {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil
	}
	return factory()
}

// Default returns a new instance of the first registered hardware backend, by
// name, falling back to FallbackBackend. It returns nil when nothing is registered.
func Default() Backend {
	for _, name := range Available() {
		if name == FallbackBackend {
			continue
		}
		if b := Get(name); b != nil {
			return b
		}
	}

	return Get(FallbackBackend)
}
