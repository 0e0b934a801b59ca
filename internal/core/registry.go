package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// registry holds the modules linked into the binary, keyed by ID.
type registry struct {
	mu   sync.RWMutex
	byID map[ModuleID]ModuleInfo
}

var modules = &registry{byID: make(map[ModuleID]ModuleInfo)}

// RegisterModule records the ModuleInfo of instance. It panics on an empty
// ID, a nil constructor, a module ordered after itself or a duplicate ID.
// Modules call it from init.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}
	if slices.Contains(info.After, info.ID) {
		panic(fmt.Sprintf("module %s: cannot start after itself", info.ID))
	}

	modules.mu.Lock()
	defer modules.mu.Unlock()
	if _, exists := modules.byID[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	modules.byID[info.ID] = info
}

// GetModule returns the ModuleInfo for id.
func GetModule(id string) (ModuleInfo, bool) {
	modules.mu.RLock()
	defer modules.mu.RUnlock()
	info, ok := modules.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns every registered module sorted by ID.
func GetModules() []ModuleInfo {
	modules.mu.RLock()
	defer modules.mu.RUnlock()
	result := make([]ModuleInfo, 0, len(modules.byID))
	for _, info := range modules.byID {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// StartOrder sorts ids so that each module comes after the ones named in its
// After list. Entries of After that are not in ids are ignored. Among modules
// free to start, the lowest ID goes first, so the result is stable.
func StartOrder(ids []string) ([]string, error) {
	pending := make(map[string][]string, len(ids))
	for _, id := range ids {
		pending[id] = nil
	}
	modules.mu.RLock()
	for _, id := range ids {
		for _, dep := range modules.byID[ModuleID(id)].After {
			if _, ok := pending[string(dep)]; ok {
				pending[id] = append(pending[id], string(dep))
			}
		}
	}
	modules.mu.RUnlock()

	started := make(map[string]bool, len(ids))
	order := make([]string, 0, len(ids))
	for len(order) < len(pending) {
		var ready []string
		for id, deps := range pending {
			if started[id] {
				continue
			}
			if !slices.ContainsFunc(deps, func(d string) bool { return !started[d] }) {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			var stuck []string
			for id := range pending {
				if !started[id] {
					stuck = append(stuck, id)
				}
			}
			slices.Sort(stuck)
			return nil, fmt.Errorf("module start order has a cycle: %s", strings.Join(stuck, ", "))
		}
		next := slices.Min(ready)
		started[next] = true
		order = append(order, next)
	}
	return order, nil
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modules.mu.Lock()
	defer modules.mu.Unlock()
	modules.byID = make(map[ModuleID]ModuleInfo)
}
