package steps

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gauntlet/internal/guest"
)

// BasePlugin carries what every phase shares: the resolved method name, the
// raw configuration record and a handle back to the owning plan. Concrete
// plugins embed it.
type BasePlugin struct {
	plan Plan
	how  string
	name string
	data StepData
}

// NewBasePlugin binds a phase to its plan and configuration record.
func NewBasePlugin(plan Plan, how string, data StepData) BasePlugin {
	return BasePlugin{
		plan: plan,
		how:  how,
		name: data.PhaseName(how),
		data: data,
	}
}

// How returns the method implementing this phase.
func (p *BasePlugin) How() string {
	return p.how
}

// Name returns the phase name, defaulting to the method name.
func (p *BasePlugin) Name() string {
	return p.name
}

// Data returns the raw configuration record of the phase.
func (p *BasePlugin) Data() StepData {
	return p.data
}

// Plan returns the owning plan handle.
func (p *BasePlugin) Plan() Plan {
	return p.plan
}

// EnabledOnGuest reports whether this phase applies to the given guest,
// honoring the optional "where" selector of its configuration.
func (p *BasePlugin) EnabledOnGuest(g guest.Guest) bool {
	where := p.data.Where()
	if where == "" {
		return true
	}
	return where == g.Name() || where == g.Role()
}

// Info prints one key: value detail line at phase depth in the run output.
func (p *BasePlugin) Info(key, value string) {
	if value == "" {
		fmt.Println("        " + key)
		return
	}
	fmt.Printf("        %s: %s\n", key, value)
}

// Verbose prints a detail line only when verbose output is enabled.
func (p *BasePlugin) Verbose(key, value string) {
	if p.plan != nil && p.plan.Verbose() {
		p.Info(key, value)
	}
}

// Method describes one registered way a step family can do its work.
type Method[P any] struct {
	// Name is the "how" value selecting this method.
	Name string
	// Summary is a one-line description shown in listings.
	Summary string
	// Order ranks methods in listings, lower first.
	Order int
	// New constructs a phase bound to the plan and configuration record.
	New func(plan Plan, data StepData) (P, error)
}

// Registry keeps the methods registered for one step family. Plugin
// packages register themselves in init, so lookups never race with writes
// in practice; the lock keeps the registry safe for tests that register
// fakes.
type Registry[P any] struct {
	step    string
	mu      sync.RWMutex
	methods map[string]Method[P]
}

// NewRegistry creates an empty registry for the named step family.
func NewRegistry[P any](step string) *Registry[P] {
	return &Registry[P]{step: step, methods: make(map[string]Method[P])}
}

// Register adds a method. Registering the same name twice is a programming
// error and panics.
func (r *Registry[P]) Register(method Method[P]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[method.Name]; exists {
		panic("duplicate " + r.step + " method: " + method.Name)
	}
	r.methods[method.Name] = method
}

// Get looks up a method by name.
func (r *Registry[P]) Get(name string) (Method[P], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	method, ok := r.methods[name]
	return method, ok
}

// Methods lists registered methods ordered by rank, then name.
func (r *Registry[P]) Methods() []Method[P] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listed := make([]Method[P], 0, len(r.methods))
	for _, method := range r.methods {
		listed = append(listed, method)
	}
	sort.Slice(listed, func(i, j int) bool {
		if listed[i].Order != listed[j].Order {
			return listed[i].Order < listed[j].Order
		}
		return listed[i].Name < listed[j].Name
	})
	return listed
}

// Names lists registered method names in listing order.
func (r *Registry[P]) Names() []string {
	methods := r.Methods()
	names := make([]string, 0, len(methods))
	for _, method := range methods {
		names = append(names, method.Name)
	}
	return names
}

// Delegate resolves the method selected by a configuration record and
// constructs exactly one phase for it. An unknown method is a
// specification error listing what is available.
func (r *Registry[P]) Delegate(plan Plan, data StepData, fallback string) (P, error) {
	how := data.How(fallback)
	method, ok := r.Get(how)
	if !ok {
		var zero P
		return zero, NewSpecificationError(
			"unknown %s method '%s' (available: %s)",
			r.step, how, strings.Join(r.Names(), ", "))
	}
	return method.New(plan, data)
}
