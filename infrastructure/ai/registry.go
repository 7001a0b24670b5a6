package ai

import (
	"sort"
	"sync"

	"engram/application/ports"
	pkgerrors "engram/pkg/errors"
)

// Registry resolves generators by provider name and tracks the cost
// multiplier applied to each provider's storage charges.
type Registry struct {
	mu          sync.RWMutex
	generators  map[string]ports.TextGenerator
	multipliers map[string]float32
	defaultName string
}

// NewRegistry creates a registry with the given default provider.
func NewRegistry(defaultGenerator ports.TextGenerator, multiplier float32) *Registry {
	r := &Registry{
		generators:  make(map[string]ports.TextGenerator),
		multipliers: make(map[string]float32),
		defaultName: defaultGenerator.Name(),
	}
	r.Add(defaultGenerator, multiplier)
	return r
}

var _ ports.ProviderRegistry = (*Registry)(nil)

// Add registers a generator under its own name.
func (r *Registry) Add(generator ports.TextGenerator, multiplier float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[generator.Name()] = generator
	if multiplier <= 0 {
		multiplier = 1.0
	}
	r.multipliers[generator.Name()] = multiplier
}

// Generator returns the generator registered under name, or the default
// one when name is empty.
func (r *Registry) Generator(name string) (ports.TextGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
	}
	generator, exists := r.generators[name]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("provider " + name)
	}
	return generator, nil
}

// Multiplier returns the cost multiplier for a provider. Unknown
// providers bill at the base rate.
func (r *Registry) Multiplier(name string) float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
	}
	if m, exists := r.multipliers[name]; exists {
		return m
	}
	return 1.0
}

// SetMultiplier updates the cost multiplier for a provider.
func (r *Registry) SetMultiplier(name string, multiplier float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if multiplier <= 0 {
		multiplier = 1.0
	}
	r.multipliers[name] = multiplier
}

// Names lists the registered providers in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
