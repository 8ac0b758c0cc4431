package channel

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateChannel is returned when a channel name is declared twice.
	ErrDuplicateChannel = errors.New("channel already declared")
	// ErrRegistryFrozen is returned when declaring into a frozen registry.
	ErrRegistryFrozen = errors.New("channel registry is frozen")
)

// Registry is the lookup table of every channel of one run, keyed by name.
// Stage declarations refer to channels by name only; the registry is what
// turns those names into live channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Declare creates the named channel with its producer.
func (r *Registry) Declare(name, producer string) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, fmt.Errorf("declare %q: %w", name, ErrRegistryFrozen)
	}
	if existing, ok := r.channels[name]; ok {
		return nil, fmt.Errorf("declare %q (producer %q, existing producer %q): %w",
			name, producer, existing.producer, ErrDuplicateChannel)
	}
	ch := New(name, producer)
	r.channels[name] = ch
	return ch, nil
}

// Lookup returns the named channel.
func (r *Registry) Lookup(name string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns every declared channel name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Freeze forbids further declarations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
