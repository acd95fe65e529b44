// Package observability provides hooks for metrics and tracing.
//
// The core libraries stay free of observability frameworks: they emit events
// through the hook interfaces defined here, and the application registers
// concrete implementations (Prometheus, OpenTelemetry, plain logging) at
// startup. Unregistered hooks default to no-ops.
//
// Hooks are registered by main, never by libraries, which avoids import
// cycles and keeps instrumentation optional:
//
//	func main() {
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// StoreHooks receives events from metadata store operations.
type StoreHooks interface {
	// OnHit records a fresh entry served from the store.
	OnHit(ctx context.Context, backend, key string)

	// OnMiss records an absent or expired entry. expired distinguishes lazy
	// expiry from a plain miss.
	OnMiss(ctx context.Context, backend, key string, expired bool)

	// OnWrite records a stored entry and its size in bytes.
	OnWrite(ctx context.Context, backend, key string, size int)

	// OnEvict records an entry removed under capacity pressure.
	OnEvict(ctx context.Context, backend, key string)
}

// ResolveHooks receives events from dependency-tree reconstruction.
type ResolveHooks interface {
	OnResolveStart(ctx context.Context, roots int)
	OnResolveComplete(ctx context.Context, roots, nodes int, duration time.Duration)
}

// noopStoreHooks is the default StoreHooks implementation.
type noopStoreHooks struct{}

func (noopStoreHooks) OnHit(context.Context, string, string)        {}
func (noopStoreHooks) OnMiss(context.Context, string, string, bool) {}
func (noopStoreHooks) OnWrite(context.Context, string, string, int) {}
func (noopStoreHooks) OnEvict(context.Context, string, string)      {}

// noopResolveHooks is the default ResolveHooks implementation.
type noopResolveHooks struct{}

func (noopResolveHooks) OnResolveStart(context.Context, int)                        {}
func (noopResolveHooks) OnResolveComplete(context.Context, int, int, time.Duration) {}

var (
	mu           sync.RWMutex
	storeHooks   StoreHooks   = noopStoreHooks{}
	resolveHooks ResolveHooks = noopResolveHooks{}
)

// SetStoreHooks registers store hooks. Passing nil restores the no-op default.
func SetStoreHooks(h StoreHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		storeHooks = noopStoreHooks{}
		return
	}
	storeHooks = h
}

// SetResolveHooks registers resolve hooks. Passing nil restores the no-op default.
func SetResolveHooks(h ResolveHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		resolveHooks = noopResolveHooks{}
		return
	}
	resolveHooks = h
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	mu.RLock()
	defer mu.RUnlock()
	return storeHooks
}

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks {
	mu.RLock()
	defer mu.RUnlock()
	return resolveHooks
}
