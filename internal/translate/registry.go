package translate

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/flume/internal/exec"
)

// Registry resolves named function references to implementations.
//
// Names are NFC normalized at registration and at lookup, so composed and
// decomposed spellings of the same name always meet. The registered
// implementation must be one of the stream function kinds; whether it fits
// a particular use site is checked during translation, where the use site
// is known.
//
// Thread-safety: safe for concurrent use. Registration typically happens
// once at startup; lookups run on every build.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*exec.Func
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*exec.Func)}
}

// Register binds a name to a function implementation. Empty names and
// duplicate registrations are rejected.
func (r *Registry) Register(name string, impl any) error {
	key := norm.NFC.String(name)
	if key == "" {
		return fmt.Errorf("function name must not be empty")
	}
	if impl == nil {
		return fmt.Errorf("function %q: implementation must not be nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[key]; exists {
		return fmt.Errorf("function %q already registered", key)
	}
	r.funcs[key] = exec.NewFunc(key, impl)
	return nil
}

// MustRegister is Register, panicking on error. For startup wiring where
// a registration failure is a programming mistake.
func (r *Registry) MustRegister(name string, impl any) {
	if err := r.Register(name, impl); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name, NFC normalizing the
// lookup key first.
func (r *Registry) Lookup(name string) (*exec.Func, bool) {
	key := norm.NFC.String(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[key]
	return f, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}
