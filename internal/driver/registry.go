package driver

import (
	"fmt"
	"sync"

	"github.com/sqldeck/sqldeck/internal/errs"
)

// Registry resolves drivers for target URLs. It is an explicit object:
// callers construct one, wire a known-drivers hook, and inject it into each
// session. Registration order is probe order.
type Registry struct {
	mu      sync.RWMutex
	drivers []Driver
	byName  map[string]Driver

	knownOnce sync.Once
	known     func(*Registry)
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Driver)}
}

// SetKnownDrivers installs the fallback invoked by RegisterKnownDrivers.
// Typically wired to known.RegisterAll at startup.
func (r *Registry) SetKnownDrivers(fn func(*Registry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known = fn
}

// Register adds d to the probe list. A driver registered twice under the
// same name replaces the named entry but is probed at its first position.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[d.Name()]; !ok {
		r.drivers = append(r.drivers, d)
	}
	r.byName[d.Name()] = d
}

// Load resolves a driver by name. Used for the explicit driver setting on a
// session; a miss is a configuration error that aborts the connect attempt.
func (r *Registry) Load(name string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("driver %q is not registered (available: %v)", name, r.names()))
	}
	return d, nil
}

// DriverFor probes registered drivers in registration order and returns the
// first one accepting url.
func (r *Registry) DriverFor(url string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.drivers {
		if d.AcceptsURL(url) {
			return d, true
		}
	}
	return nil, false
}

// RegisterKnownDrivers runs the known-drivers hook. The hook runs at most
// once per Registry regardless of how many sessions trigger the fallback.
func (r *Registry) RegisterKnownDrivers() {
	r.mu.RLock()
	fn := r.known
	r.mu.RUnlock()
	if fn == nil {
		return
	}
	r.knownOnce.Do(func() { fn(r) })
}

// Names returns the registered driver names in probe order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.drivers))
	for _, d := range r.drivers {
		names = append(names, d.Name())
	}
	return names
}
