// Package fusion implements the pattern-based graph matching and rewriting
// engine: a registry of fusion patterns ranked by priority and engine kind, a
// backtracking subgraph matcher that binds pattern positions to host nodes,
// and a rewriter that atomically replaces a matched region with one fused
// node bound to the pattern's kernel.
//
// The process is: look for a registered pattern in the host graph, verify the
// replacement is safe (decision predicates, boundary safety), then replace
// the matched region with a fused op and update the graph. Failure to fuse is
// never an error: the unfused graph stays valid.
package fusion

import (
	"sort"

	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/kernels"
	"github.com/Flamefire/oneDNN/pattern"
	"github.com/gomlx/exceptions"
)

// Def describes one fusion pattern to register: its template builder, its
// rank among competing patterns and the kernel factory bound to successful
// matches. A Def is plain data; Build and CreateKernel are the only behavior
// it carries.
type Def struct {
	// Name identifies the pattern in diagnostics, e.g. "int8_pool_binary_fusion_cpu".
	Name string

	// Priority ranks competing patterns; higher wins. Ties are broken by
	// registration order, first registered wins.
	Priority float32

	// Kind is the result-kind tagged onto the fused node for later dispatch.
	Kind graph.PartitionKind

	// Engine optionally restricts the pattern to one hardware target.
	// The zero value (EngineAny) applies everywhere.
	Engine graph.EngineKind

	// Build assembles the pattern template. It runs exactly once, at
	// registration.
	Build func(pg *pattern.Graph)

	// CreateKernel produces the runtime kernel for one committed match. It is
	// invoked exactly once per commit, before any graph mutation.
	CreateKernel kernels.Factory
}

// Registered is a pattern held by a Registry, with its template already built
// and validated.
type Registered struct {
	def Def
	pg  *pattern.Graph
	seq int
}

// Name returns the pattern's name.
func (r *Registered) Name() string { return r.def.Name }

// Priority returns the pattern's rank.
func (r *Registered) Priority() float32 { return r.def.Priority }

// Engine returns the pattern's hardware-target restriction.
func (r *Registered) Engine() graph.EngineKind { return r.def.Engine }

// Kind returns the result-kind applied to fused nodes.
func (r *Registered) Kind() graph.PartitionKind { return r.def.Kind }

// Template returns the built pattern graph.
func (r *Registered) Template() *pattern.Graph { return r.pg }

// Registry holds registered fusion patterns. Registration is additive and
// typically happens once during process initialization; PatternsFor has no
// side effects and may be called concurrently afterwards.
type Registry struct {
	all []*Registered
}

// NewRegistry creates an empty pattern registry.
func NewRegistry() *Registry { return &Registry{} }

// Register builds, validates and stores a pattern. A malformed Def or pattern
// graph is a programmer error and panics immediately: construction errors
// must never surface at match time.
func (r *Registry) Register(def Def) *Registered {
	if def.Name == "" {
		exceptions.Panicf("fusion: Register: Def.Name must not be empty")
	}
	if def.Build == nil {
		exceptions.Panicf("fusion: Register %q: Def.Build must not be nil", def.Name)
	}
	if def.CreateKernel == nil {
		exceptions.Panicf("fusion: Register %q: Def.CreateKernel must not be nil", def.Name)
	}
	pg := pattern.NewGraph(def.Name)
	def.Build(pg)
	if err := pg.Validate(); err != nil {
		exceptions.Panicf("fusion: Register %q: %+v", def.Name, err)
	}
	reg := &Registered{def: def, pg: pg, seq: len(r.all)}
	r.all = append(r.all, reg)
	return reg
}

// PatternsFor returns the registered patterns applicable to the given engine
// kind (unrestricted patterns plus those restricted to exactly that engine),
// ordered by descending priority. Ties are broken by registration sequence,
// so fusion decisions are reproducible across runs.
func (r *Registry) PatternsFor(engine graph.EngineKind) []*Registered {
	out := make([]*Registered, 0, len(r.all))
	for _, reg := range r.all {
		if reg.def.Engine == graph.EngineAny || reg.def.Engine == engine {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].def.Priority != out[j].def.Priority {
			return out[i].def.Priority > out[j].def.Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}
