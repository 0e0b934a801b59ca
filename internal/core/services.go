package core

import (
	"slices"
	"strings"
	"sync"
)

// serviceRegistry is shared by every AppContext derived from the same root,
// so services registered by one module are visible to all others.
type serviceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
}

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{services: make(map[string]any)}
}

// RegisterService makes svc discoverable under name. A later registration
// with the same name replaces the earlier one.
func (ctx *AppContext) RegisterService(name string, svc any) {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.services[name] = svc
}

// Service returns the service registered under name.
func (ctx *AppContext) Service(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	svc, ok := ctx.services.services[name]
	return svc, ok
}

// GetService is an alias of Service.
func (ctx *AppContext) GetService(name string) (any, bool) {
	return ctx.Service(name)
}

// ServicesWithPrefix returns the names of all services starting with prefix,
// sorted.
func (ctx *AppContext) ServicesWithPrefix(prefix string) []string {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()

	var names []string
	for name := range ctx.services.services {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// LookupService returns the service registered under name if it has type T.
func LookupService[T any](ctx *AppContext, name string) (T, bool) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, false
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
