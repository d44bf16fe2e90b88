package cstruct

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Instance is a live view of a structure over a byte buffer.
//
// A top-level instance owns its buffer unless it was materialized over an
// external one. Nested STRUCT fields are instances that alias the same buffer at
// their absolute offset; writes through either side are seen by the other.
// Instances are not safe for concurrent writes.
type Instance struct {
	layout   *Layout
	arena    []byte
	base     int
	children []*Instance // parallel to layout.Entries, nil for non-STRUCT entries
}

// Option configures Materialize.
type Option func(*options)

type options struct {
	order    binary.ByteOrder
	buf      []byte
	offset   int
	external bool
}

// WithByteOrder sets the byte order of multi-byte fields and 16-bit bit-field
// containers. The default is Order.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) { o.order = order }
}

// WithBuffer materializes the instance over buf[offset:] instead of allocating.
// The existing bytes are kept except for fields that declare defaults.
func WithBuffer(buf []byte, offset int) Option {
	return func(o *options) {
		o.buf, o.offset, o.external = buf, offset, true
	}
}

// Materialize compiles the referenced definition and binds it to a buffer.
func (r *Registry) Materialize(ref Ref, opts ...Option) (*Instance, error) {
	o := options{order: Order}
	for _, opt := range opts {
		opt(&o)
	}
	return r.materialize(ref, o)
}

func (r *Registry) materialize(ref Ref, o options) (*Instance, error) {
	l, err := r.Compile(ref, o.order)
	if err != nil {
		return nil, err
	}

	var (
		arena []byte
		base  int
	)
	if o.external {
		if o.offset < 0 || o.offset > len(o.buf) || len(o.buf)-o.offset < l.Size {
			return nil, fmt.Errorf("%w: %q needs %d bytes at offset %d, buffer has %d",
				ErrBufferTooSmall, l.Name(), l.Size, o.offset, len(o.buf))
		}
		arena, base = o.buf, o.offset
	} else {
		arena = make([]byte, l.Size)
	}

	in, err := newInstance(l, arena, base)
	if err != nil {
		return nil, err
	}
	Logger().Debug("structure materialized",
		zap.String("name", l.Name()),
		zap.Int("size", l.Size),
		zap.Int("offset", base),
		zap.Bool("external", o.external))
	return in, nil
}

// newInstance binds l to arena at base and applies the declared defaults.
func newInstance(l *Layout, arena []byte, base int) (*Instance, error) {
	in := bind(l, arena, base)
	if l.HasDefaults {
		if err := in.applyDefaults(); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// bind wires l to arena at base. Nested instances receive their absolute
// offset, so arbitrarily deep nesting addresses the same buffer.
func bind(l *Layout, arena []byte, base int) *Instance {
	in := &Instance{
		layout:   l,
		arena:    arena,
		base:     base,
		children: make([]*Instance, len(l.Entries)),
	}
	for i := range l.Entries {
		if e := &l.Entries[i]; e.Nested != nil {
			in.children[i] = bind(e.Nested, arena, base+e.Offset)
		}
	}
	return in
}

// applyDefaults writes declared defaults in declaration order. Nested
// instances are only visited when their layout carries defaults.
func (in *Instance) applyDefaults() error {
	for i := range in.layout.Entries {
		e := &in.layout.Entries[i]
		switch {
		case e.Nested != nil:
			if e.Nested.HasDefaults {
				if err := in.children[i].applyDefaults(); err != nil {
					return err
				}
			}
		case e.Default != nil:
			if err := (Accessor{in: in, i: i}).Set(e.Default); err != nil {
				return fmt.Errorf("default of %s.%s: %w", in.Name(), e.Name, err)
			}
		}
	}
	return nil
}

// FromBytes materializes a fresh owned instance and copies the front of src
// into it. A longer src is cut at the structure size; a shorter one only
// overwrites its own length, leaving defaults in place after it.
func (r *Registry) FromBytes(ref Ref, src []byte, opts ...Option) (*Instance, error) {
	o := options{order: Order}
	for _, opt := range opts {
		opt(&o)
	}
	o.buf, o.offset, o.external = nil, 0, false

	in, err := r.materialize(ref, o)
	if err != nil {
		return nil, err
	}
	copy(in.Bytes(), src)
	return in, nil
}

// Duplicate returns a new owned instance of the same layout holding a copy of in's bytes.
func (in *Instance) Duplicate() (*Instance, error) {
	dup, err := newInstance(in.layout, make([]byte, in.layout.Size), 0)
	if err != nil {
		return nil, err
	}
	copy(dup.Bytes(), in.Bytes())
	return dup, nil
}

// Materialize binds ref from the Default registry.
func Materialize(ref Ref, opts ...Option) (*Instance, error) { return Default.Materialize(ref, opts...) }

// FromBytes materializes ref from the Default registry and copies src into it.
func FromBytes(ref Ref, src []byte, opts ...Option) (*Instance, error) {
	return Default.FromBytes(ref, src, opts...)
}

// Name returns the structure name.
func (in *Instance) Name() string { return in.layout.Name() }

// Definition returns the definition the instance was materialized from.
func (in *Instance) Definition() *Definition { return in.layout.def }

// Layout returns the compiled layout bound to the instance.
func (in *Instance) Layout() *Layout { return in.layout }

// Order returns the byte order of the instance.
func (in *Instance) Order() binary.ByteOrder { return in.layout.Order }

// Size returns the structure size in bytes.
func (in *Instance) Size() int { return in.layout.Size }

// Offset returns the absolute position of the instance in its backing buffer.
func (in *Instance) Offset() int { return in.base }

// Bytes returns the instance's range of the backing buffer. It is a view, not a copy.
func (in *Instance) Bytes() []byte {
	end := in.base + in.layout.Size
	return in.arena[in.base:end:end]
}

// Children returns the nested instances in declaration order.
func (in *Instance) Children() []*Instance {
	var subs []*Instance
	for _, c := range in.children {
		if c != nil {
			subs = append(subs, c)
		}
	}
	return subs
}

// Field returns the accessor of the named field.
func (in *Instance) Field(name string) (Accessor, error) {
	i, ok := in.layout.index[name]
	if !ok {
		return Accessor{}, fmt.Errorf("%w: %s.%s", ErrNoSuchField, in.Name(), name)
	}
	return Accessor{in: in, i: i}, nil
}

// Get returns the value of the named field, see Accessor.Get.
func (in *Instance) Get(name string) (any, error) {
	a, err := in.Field(name)
	if err != nil {
		return nil, err
	}
	return a.Get()
}

// Set writes v into the named field, see Accessor.Set.
func (in *Instance) Set(name string, v any) error {
	a, err := in.Field(name)
	if err != nil {
		return err
	}
	return a.Set(v)
}

// Uint returns an integer or bit-field value zero-extended to 64 bits.
func (in *Instance) Uint(name string) (uint64, error) {
	a, err := in.kind(name, KindUint, KindInt, KindBits)
	if err != nil {
		return 0, err
	}
	return a.Uint(), nil
}

// Int returns an integer value sign-extended by its width. A UINT64 value
// above math.MaxInt64 fails with ErrValueTooLarge; read it with Uint.
func (in *Instance) Int(name string) (int64, error) {
	a, err := in.kind(name, KindUint, KindInt, KindBits)
	if err != nil {
		return 0, err
	}
	if u := a.Uint(); a.Type() == UINT64 && u > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s.%s holds %d", ErrValueTooLarge, in.Name(), name, u)
	}
	return a.Int(), nil
}

// Float returns a FLOAT32 or FLOAT64 value.
func (in *Instance) Float(name string) (float64, error) {
	a, err := in.kind(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return a.Float(), nil
}

// Text returns the decoded value of a STRING field.
func (in *Instance) Text(name string) (string, error) {
	a, err := in.kind(name, KindString)
	if err != nil {
		return "", err
	}
	return a.Text()
}

// Raw returns a view of the bytes of the named field.
func (in *Instance) Raw(name string) ([]byte, error) {
	a, err := in.Field(name)
	if err != nil {
		return nil, err
	}
	return a.Raw(), nil
}

// Struct returns the nested instance of a STRUCT field.
func (in *Instance) Struct(name string) (*Instance, error) {
	a, err := in.kind(name, KindStruct)
	if err != nil {
		return nil, err
	}
	return a.Struct(), nil
}

func (in *Instance) kind(name string, kinds ...Kind) (Accessor, error) {
	a, err := in.Field(name)
	if err != nil {
		return a, err
	}
	k := a.Type().Kind()
	for _, want := range kinds {
		if k == want {
			return a, nil
		}
	}
	return Accessor{}, fmt.Errorf("%w: %s field %s.%s", ErrKindMismatch, a.Type(), in.Name(), name)
}

// Map returns a snapshot of every named field. Nested structures become nested
// maps and CHAR fields are copied.
func (in *Instance) Map() (map[string]any, error) {
	m := make(map[string]any, len(in.layout.index))
	for i := range in.layout.Entries {
		e := &in.layout.Entries[i]
		if e.Name == "" {
			continue
		}
		a := Accessor{in: in, i: i}
		switch e.Type.Kind() {
		case KindStruct:
			sub, err := a.Struct().Map()
			if err != nil {
				return nil, err
			}
			m[e.Name] = sub
		case KindBytes:
			m[e.Name] = append([]byte(nil), a.Raw()...)
		default:
			v, err := a.Get()
			if err != nil {
				return nil, err
			}
			m[e.Name] = v
		}
	}
	return m, nil
}
