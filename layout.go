package cstruct

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding"
)

// BitPlacement locates a bit-field inside its container. Bit i of the container
// holds bit i of the value shifted by Shift.
type BitPlacement struct {
	Shift uint
	Width uint
	Mask  uint16
}

// Entry is the compiled placement of one named field.
type Entry struct {
	Name string
	Type Type
	// Offset is relative to the start of the structure. For bit-fields it is the
	// offset of the container.
	Offset int
	// Width is the byte length of the field, or of the container for bit-fields.
	Width    int
	Bit      BitPlacement
	Nested   *Layout
	Default  any
	Encoding encoding.Encoding
	// Nul is the byte width of the STRING terminator: one code unit of Encoding.
	Nul int
}

// Layout is the accessor table of a definition: the byte size of the structure
// and the placement of every named field in declaration order.
type Layout struct {
	def     *Definition
	Order   binary.ByteOrder
	Size    int
	Entries []Entry
	// HasDefaults is set when this layout or any nested one carries a default.
	HasDefaults bool
	index       map[string]int
}

// Definition returns the definition the layout was compiled from.
func (l *Layout) Definition() *Definition { return l.def }

// Name returns the structure name.
func (l *Layout) Name() string { return l.def.name }

// Entry returns the placement of the named field.
func (l *Layout) Entry(name string) (*Entry, bool) {
	i, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return &l.Entries[i], true
}

// Compile computes the layout of the referenced definition. Byte order does not
// change offsets; it is recorded for the accessors bound to the layout.
func (r *Registry) Compile(ref Ref, order binary.ByteOrder) (*Layout, error) {
	return r.compile(ref, orderOrDefault(order), make(map[*Definition]bool))
}

func (r *Registry) compile(ref Ref, order binary.ByteOrder, visiting map[*Definition]bool) (*Layout, error) {
	def, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	if visiting[def] {
		return nil, fmt.Errorf("%w: structure %q contains itself", ErrInvalidType, def.name)
	}
	visiting[def] = true
	defer delete(visiting, def)

	fields := def.Fields()
	l := &Layout{
		def:     def,
		Order:   order,
		Entries: make([]Entry, 0, len(fields)),
		index:   make(map[string]int, len(fields)),
	}

	var (
		size   int
		packer bitPacker
	)
	for i := range fields {
		f := &fields[i]
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", def.name, err)
		}

		var e *Entry
		switch f.Type.Kind() {
		case KindUint, KindInt, KindFloat:
			size = packer.flush(size)
			e = &Entry{Offset: size, Width: f.Type.Width()}
		case KindBytes:
			size = packer.flush(size)
			e = &Entry{Offset: size, Width: f.Size}
		case KindString:
			size = packer.flush(size)
			e = &Entry{Offset: size, Width: f.Size, Encoding: f.Encoding, Nul: nulWidth(textEncoding(f.Encoding))}
		case KindStruct:
			size = packer.flush(size)
			nested, err := r.compile(f.Struct, order, visiting)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.name, f.Name, err)
			}
			e = &Entry{Offset: size, Width: nested.Size, Nested: nested}
		case KindBits:
			if size, e, err = packer.pack(size, f); err != nil {
				return nil, fmt.Errorf("%s: %w", def.name, err)
			}
			if e != nil {
				l.add(e)
			}
			continue
		}

		e.Name, e.Type, e.Default = f.Name, f.Type, f.Default
		size += e.Width
		l.add(e)
	}

	l.Size = packer.flush(size)
	return l, nil
}

func (l *Layout) add(e *Entry) {
	if e.Default != nil || (e.Nested != nil && e.Nested.HasDefaults) {
		l.HasDefaults = true
	}
	if e.Name != "" {
		l.index[e.Name] = len(l.Entries)
	}
	l.Entries = append(l.Entries, *e)
}
