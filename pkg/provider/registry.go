package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

type entry struct {
	desc    Descriptor
	adapter Adapter
}

// Registry is the ordered, immutable catalog of providers for one endpoint family.
type Registry struct {
	entries  map[string]entry
	ordered  []string
	defaults []string
}

// NewRegistry builds a registry from configuration. Disabled providers and providers
// whose required credentials are missing are left out.
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider registry: config is nil")
	}
	r := &Registry{entries: make(map[string]entry, len(cfg.Providers))}
	for name, pc := range cfg.Providers {
		if pc == nil || pc.Disabled {
			continue
		}
		if !pc.credentialsPresent() {
			logx.Debugf("provider registry: skipping %s, credentials not configured", name)
			continue
		}
		builder, ok := lookupAdapterBuilder(pc.Type)
		if !ok {
			return nil, fmt.Errorf("provider %s: unsupported type %q", name, pc.Type)
		}
		desc := pc.descriptor(name)
		adapter, err := builder(desc)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		r.entries[name] = entry{desc: desc, adapter: adapter}
		r.ordered = append(r.ordered, name)
	}
	r.sortByPriority(r.ordered)
	for _, name := range cfg.Default {
		if _, ok := r.entries[name]; ok {
			r.defaults = append(r.defaults, name)
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error.
func MustNewRegistry(cfg *Config) *Registry {
	r, err := NewRegistry(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns every registered provider in priority order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.ordered...)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int { return len(r.ordered) }

// Get returns a copy of the named provider's descriptor.
func (r *Registry) Get(name string) (Descriptor, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc.Clone(), true
}

// Adapter returns the adapter bound to the named provider.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.adapter, true
}

// Resolve returns the candidate chain for a request: candidates (or the default list when
// empty) minus skip, restricted to registered providers, ordered by ascending priority.
func (r *Registry) Resolve(candidates, skip []string) []string {
	base := candidates
	if len(base) == 0 {
		base = r.defaults
	}
	if len(base) == 0 {
		base = r.ordered
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base))
	for _, name := range base {
		name = strings.TrimSpace(name)
		if _, ok := r.entries[name]; !ok {
			continue
		}
		if _, ok := skipped[strings.ToLower(name)]; ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	r.sortByPriority(out)
	return out
}

func (r *Registry) sortByPriority(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := r.entries[names[i]].desc.Priority, r.entries[names[j]].desc.Priority
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
}
