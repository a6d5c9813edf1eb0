package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/archdesk/archdesk/internal/provider"
)

// Registry is the tool catalog. It is filled once at startup and only read
// afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register adds a definition. Duplicate names and destructive tools that do
// not require approval are rejected.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Destructive && !def.RequiresApproval {
		return fmt.Errorf("tool %q is destructive and must require approval", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = def
	return nil
}

func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// All returns every definition sorted by name.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (r *Registry) ByCategory(c Category) []Definition {
	var out []Definition
	for _, def := range r.All() {
		if def.Category == c {
			out = append(out, def)
		}
	}
	return out
}

// ForModel returns the model-facing schemas of the named tools, in the order
// given. With no names every tool is returned. Unknown names are skipped.
func (r *Registry) ForModel(names ...string) []provider.ToolSchema {
	var defs []Definition
	if len(names) == 0 {
		defs = r.All()
	} else {
		for _, n := range names {
			if def, ok := r.Get(n); ok {
				defs = append(defs, def)
			}
		}
	}

	out := make([]provider.ToolSchema, 0, len(defs))
	for _, def := range defs {
		out = append(out, provider.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema.Map(),
		})
	}
	return out
}

// Names returns every tool name sorted.
func (r *Registry) Names() []string {
	defs := r.All()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
