package actions

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes one dispatched Action against a *session.BrowserSession
// and returns the text fed back into the model's next observation, per
// spec.md §4.4 "extracted_content".
type Handler func(ctx context.Context, a Action) (extractedContent string, err error)

// Spec describes one registered action kind: its required parameters (for
// validation before dispatch, mirroring mcprt.Registry.ExecuteTool's
// required-param check) and its handler.
type Spec struct {
	Kind        Kind
	Description string
	Required    []string
	Handler     Handler
}

// Registry is ActionController's static name→handler table (SPEC_FULL.md
// §3.3), adapted from mcprt.Registry.ExecuteTool's required-param
// validation and dispatch-by-handler-type switch, but with handlers
// registered directly as Go closures at startup rather than loaded from a
// SQL-backed table — there is no need for hot-reload or per-tool SQL
// handler types here, since the handler set is fixed by spec.md §9.
type Registry struct {
	mu    sync.RWMutex
	specs map[Kind]*Spec
}

// NewRegistry returns an empty registry; call Register for each action kind.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[Kind]*Spec)}
}

// Register adds or replaces the handler for spec.Kind.
func (r *Registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := spec
	r.specs[spec.Kind] = &s
}

// Get returns the registered spec for kind, if any.
func (r *Registry) Get(kind Kind) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[kind]
	return s, ok
}

// Kinds returns every registered action kind, for building the model's
// available-actions listing (PromptAssembler's action catalog).
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	return out
}

// Execute validates required params then invokes the registered handler.
func (r *Registry) Execute(ctx context.Context, a Action) (string, error) {
	spec, ok := r.Get(a.Kind)
	if !ok {
		return "", fmt.Errorf("actions: unknown action kind %q", a.Kind)
	}
	for _, req := range spec.Required {
		if _, present := a.Params[req]; !present {
			return "", fmt.Errorf("actions: %s: missing required param %q", a.Kind, req)
		}
	}
	return spec.Handler(ctx, a)
}
