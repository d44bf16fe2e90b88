package cstruct

import (
	"fmt"

	"golang.org/x/text/encoding"
)

// Field is a single declaration of a Definition. Order of declaration is the
// order of layout.
type Field struct {
	// Name may be empty for bit-field padding, which takes space but has no accessor.
	Name string
	Type Type
	// Size is the byte length of CHAR and STRING fields.
	Size int
	// Bits is the width of BIT8 and BIT16 fields. Zero flushes the open container.
	Bits int
	// Struct is the nested definition of STRUCT fields.
	Struct Ref
	// Default, when non-nil, is written through the field's setter on materialization.
	Default any
	// Encoding is the text encoding of STRING fields. Nil means UTF-8.
	Encoding encoding.Encoding
}

// FieldOption configures a Field passed to Builder.AddField.
type FieldOption func(*Field)

// WithSize sets the byte length of a CHAR or STRING field.
func WithSize(n int) FieldOption { return func(f *Field) { f.Size = n } }

// WithBits sets the width of a bit-field.
func WithBits(n int) FieldOption { return func(f *Field) { f.Bits = n } }

// WithStruct nests the registered definition called name.
func WithStruct(name string) FieldOption { return func(f *Field) { f.Struct = ByName(name) } }

// WithStructDef nests d directly.
func WithStructDef(d *Definition) FieldOption { return func(f *Field) { f.Struct = ByDefinition(d) } }

// WithDefault sets the value written to the field when an instance is materialized.
func WithDefault(v any) FieldOption { return func(f *Field) { f.Default = v } }

// WithEncoding sets the text encoding of a STRING field.
func WithEncoding(enc encoding.Encoding) FieldOption { return func(f *Field) { f.Encoding = enc } }

// validate checks everything about f that does not depend on other definitions.
func (f *Field) validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %s for field %q", ErrInvalidType, f.Type, f.Name)
	}

	switch f.Type.Kind() {
	case KindBytes, KindString:
		if f.Size <= 0 {
			return fmt.Errorf("%w: %s field %q requires a positive size", ErrInvalidType, f.Type, f.Name)
		}
	case KindStruct:
		if f.Struct.IsZero() {
			return fmt.Errorf("%w: STRUCT field %q requires a structure", ErrInvalidType, f.Name)
		}
		if f.Default != nil {
			return fmt.Errorf("%w: STRUCT field %q cannot carry a default", ErrInvalidType, f.Name)
		}
	case KindBits:
		if f.Bits < 0 || f.Bits > f.Type.Width()*8 {
			return fmt.Errorf("%w: %s field %q cannot hold %d bits", ErrInvalidType, f.Type, f.Name, f.Bits)
		}
	}

	if f.Encoding != nil && f.Type != STRING {
		return fmt.Errorf("%w: encoding given for %s field %q", ErrInvalidType, f.Type, f.Name)
	}

	if f.Default != nil {
		if err := f.checkDefault(); err != nil {
			return fmt.Errorf("%w: default for field %q: %w", ErrInvalidType, f.Name, err)
		}
	}
	return nil
}

func (f *Field) checkDefault() error {
	var ok bool
	switch f.Type.Kind() {
	case KindUint, KindInt, KindBits:
		_, ok = toUint64(f.Default)
	case KindFloat:
		_, ok = toFloat64(f.Default)
	case KindBytes:
		var b []byte
		if b, ok = toBytes(f.Default); ok && len(b) > f.Size {
			return fmt.Errorf("%w: %d bytes into %d", ErrValueTooLarge, len(b), f.Size)
		}
	case KindString:
		_, ok = f.Default.(string)
	}
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrKindMismatch, f.Default, f.Type)
	}
	return nil
}
