package main

import (
	"sort"
	"sync"
)

// Registry holds the live tables by name. Tables are registered at
// startup and whenever one is created over the API.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Runner
}

func NewRegistry() *Registry {
	return &Registry{tables: map[string]*Runner{}}
}

func (r *Registry) Add(t *Runner) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[t.name]; exists {
		return false
	}
	r.tables[t.name] = t
	return true
}

func (r *Registry) Get(name string) *Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[name]
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
