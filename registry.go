package cstruct

import (
	"fmt"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Definition is a named, ordered list of field declarations. Fields can only be
// appended, through the Builder returned by Registry.Declare.
type Definition struct {
	name string

	mu     sync.RWMutex
	fields []Field
	names  map[string]struct{}
}

// Name returns the registered name of the definition.
func (d *Definition) Name() string { return d.name }

// Fields returns a copy of the declarations in order.
func (d *Definition) Fields() []Field {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.fields)
}

// Len returns the number of declared fields, padding included.
func (d *Definition) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.fields)
}

// Builder appends fields to the definition it was created for.
type Builder struct {
	def *Definition
}

// Definition returns the definition the builder appends to.
func (b *Builder) Definition() *Definition { return b.def }

// AddField appends a field of type t. Sizes, bit widths, nested structures and
// defaults are passed as options. A failed call leaves the definition unchanged.
func (b *Builder) AddField(t Type, name string, opts ...FieldOption) error {
	f := Field{Name: name, Type: t}
	for _, opt := range opts {
		opt(&f)
	}
	return b.Add(f)
}

// Add appends f. A failed call leaves the definition unchanged.
func (b *Builder) Add(f Field) error {
	if err := f.validate(); err != nil {
		return err
	}

	d := b.def
	d.mu.Lock()
	defer d.mu.Unlock()

	if f.Name != "" {
		if _, ok := d.names[f.Name]; ok {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, d.name, f.Name)
		}
		d.names[f.Name] = struct{}{}
	}
	d.fields = append(d.fields, f)
	return nil
}

// Ref names a definition either by its registered name or by value.
type Ref struct {
	name string
	def  *Definition
}

// ByName refers to the definition registered as name.
func ByName(name string) Ref { return Ref{name: name} }

// ByDefinition refers to d directly, without a registry lookup.
func ByDefinition(d *Definition) Ref { return Ref{def: d} }

// Name returns the referenced structure name.
func (r Ref) Name() string {
	if r.def != nil {
		return r.def.name
	}
	return r.name
}

// IsZero reports whether r refers to nothing.
func (r Ref) IsZero() bool { return r.def == nil && r.name == "" }

func (r Ref) String() string { return r.Name() }

// Registry is a table of named structure definitions.
//
// A Registry is safe for concurrent use: names are claimed atomically and each
// definition guards its own field list. Instances materialized from it are not
// synchronized; concurrent writes to one buffer must be serialized by the caller.
type Registry struct {
	defs *xsync.Map[string, *Definition]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: xsync.NewMap[string, *Definition]()}
}

// Default is the process-wide registry used by the package-level functions.
var Default = NewRegistry()

// Declare registers an empty definition called name and returns a builder for it.
func (r *Registry) Declare(name string) (*Builder, error) {
	d := &Definition{name: name, names: make(map[string]struct{})}
	if _, loaded := r.defs.LoadOrStore(name, d); loaded {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateDefinition, name)
	}
	Logger().Debug("structure declared", zap.String("name", name))
	return &Builder{def: d}, nil
}

// Lookup returns the definition registered as name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	return r.defs.Load(name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.defs.Size())
	r.defs.Range(func(name string, _ *Definition) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

func (r *Registry) resolve(ref Ref) (*Definition, error) {
	if ref.def != nil {
		return ref.def, nil
	}
	if d, ok := r.defs.Load(ref.name); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStruct, ref.name)
}

// Declare registers name in the Default registry.
func Declare(name string) (*Builder, error) { return Default.Declare(name) }

// Lookup finds name in the Default registry.
func Lookup(name string) (*Definition, bool) { return Default.Lookup(name) }
