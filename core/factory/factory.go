// Package factory provides a small generic registry used to build provider
// implementations from configuration. Each provider kind (holiday calendar,
// timezone resolver, route optimizer, metrics sink) keeps its own registry
// keyed by the type name that appears in the config file.
package factory

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// ModuleConfig selects a provider implementation and carries its raw
// configuration.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory constructs an implementation of T from the raw configuration map.
// Provider kinds whose constructors take extra collaborators (loggers,
// recorders) instantiate Registry with their own factory func type instead.
type Factory[T any] func(conf map[string]any) (T, error)

// Registry stores factories of one provider kind keyed by type name.
type Registry[F any] struct {
	mu        sync.RWMutex
	factories map[string]F
}

// NewRegistry returns an empty registry.
func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{factories: make(map[string]F)}
}

// Register adds a factory under the given type name. Registering the same
// name twice is an error.
func (r *Registry[F]) Register(name string, f F) error {
	if v := reflect.ValueOf(f); v.Kind() == reflect.Func && v.IsNil() {
		return fmt.Errorf("nil factory for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("factory already registered for %s", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry[F]) Lookup(name string) (F, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names lists the registered type names, sorted.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Create instantiates the implementation selected by cfg.Type from a
// registry of plain factories.
func Create[T any](r *Registry[Factory[T]], cfg ModuleConfig) (T, error) {
	f, ok := r.Lookup(cfg.Type)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	return f(cfg.Conf)
}

// Decode fills out from the raw map using json tags, matching the tags the
// config loader uses.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: out})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
