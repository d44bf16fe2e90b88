package cstruct

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Accessor reads and writes one field of an instance. It is a direct index into
// the compiled layout; obtaining one does no name lookup after Instance.Field.
type Accessor struct {
	in *Instance
	i  int
}

func (a Accessor) entry() *Entry { return &a.in.layout.Entries[a.i] }

// Name returns the field name.
func (a Accessor) Name() string { return a.entry().Name }

// Type returns the field type.
func (a Accessor) Type() Type { return a.entry().Type }

// Offset returns the absolute byte offset of the field in the backing buffer.
func (a Accessor) Offset() int { return a.in.base + a.entry().Offset }

// raw returns the bytes of the field, or of its container, aliasing the buffer.
func (a Accessor) raw() []byte {
	e := a.entry()
	off := a.in.base + e.Offset
	return a.in.arena[off : off+e.Width : off+e.Width]
}

func (a Accessor) load() uint64 {
	b, order := a.raw(), a.in.layout.Order
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

func (a Accessor) store(v uint64) {
	b, order := a.raw(), a.in.layout.Order
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	default:
		order.PutUint64(b, v)
	}
}

// Get returns the field value as its natural Go type: uint8..uint64 and
// int8..int64 by width, float32/float64, []byte aliasing the buffer for CHAR,
// string for STRING, uint8/uint16 for BIT8/BIT16 and *Instance for STRUCT.
func (a Accessor) Get() (any, error) {
	e := a.entry()
	switch e.Type.Kind() {
	case KindUint:
		u := a.load()
		switch e.Width {
		case 1:
			return uint8(u), nil
		case 2:
			return uint16(u), nil
		case 4:
			return uint32(u), nil
		}
		return u, nil
	case KindInt:
		switch i := a.Int(); e.Width {
		case 1:
			return int8(i), nil
		case 2:
			return int16(i), nil
		case 4:
			return int32(i), nil
		default:
			return i, nil
		}
	case KindFloat:
		if e.Width == 4 {
			return float32(a.Float()), nil
		}
		return a.Float(), nil
	case KindBytes:
		return a.raw(), nil
	case KindString:
		return a.Text()
	case KindStruct:
		return a.in.children[a.i], nil
	default:
		if e.Type == BIT8 {
			return uint8(a.Uint()), nil
		}
		return uint16(a.Uint()), nil
	}
}

// Uint returns integer and bit-field values zero-extended to 64 bits.
// Other kinds read as 0.
func (a Accessor) Uint() uint64 {
	e := a.entry()
	switch e.Type.Kind() {
	case KindUint, KindInt:
		return a.load()
	case KindBits:
		return (a.load() & uint64(e.Bit.Mask)) >> e.Bit.Shift
	}
	return 0
}

// Int returns integer values sign-extended by width. Unsigned and bit-field
// values are returned as is, so a UINT64 above math.MaxInt64 reads negative;
// Instance.Int rejects those. Other kinds read as 0.
func (a Accessor) Int() int64 {
	e := a.entry()
	if e.Type.Kind() != KindInt {
		return int64(a.Uint())
	}
	u := a.load()
	switch e.Width {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	}
	return int64(u)
}

// Float returns FLOAT32 and FLOAT64 values. Other kinds read as 0.
func (a Accessor) Float() float64 {
	e := a.entry()
	if e.Type.Kind() != KindFloat {
		return 0
	}
	if e.Width == 4 {
		return float64(math.Float32frombits(uint32(a.load())))
	}
	return math.Float64frombits(a.load())
}

// Raw returns the bytes of the field as a view into the backing buffer.
// For bit-fields this is the whole container.
func (a Accessor) Raw() []byte { return a.raw() }

// Text decodes a STRING field up to the first NUL code unit, or the full width
// when there is none.
func (a Accessor) Text() (string, error) {
	e := a.entry()
	if e.Type != STRING {
		return "", fmt.Errorf("%w: %s field %q read as text", ErrKindMismatch, e.Type, e.Name)
	}
	b := a.raw()
	if i := nulIndex(b, e.Nul); i >= 0 {
		b = b[:i]
	}
	s, err := textEncoding(e.Encoding).NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrKindMismatch, e.Name, err)
	}
	return string(s), nil
}

// Struct returns the nested instance of a STRUCT field, or nil for other kinds.
func (a Accessor) Struct() *Instance { return a.in.children[a.i] }

// Set encodes v into the field. Integers wrap to the field width and bit-field
// values are masked to their width. CHAR and STRING values longer than the field
// fail with ErrValueTooLarge and leave the buffer untouched; shorter CHAR values
// leave the trailing bytes as they were.
func (a Accessor) Set(v any) error {
	e := a.entry()
	switch e.Type.Kind() {
	case KindUint, KindInt:
		u, ok := toUint64(v)
		if !ok {
			return a.mismatch(v)
		}
		a.store(u)
	case KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return a.mismatch(v)
		}
		if e.Width == 4 {
			a.store(uint64(math.Float32bits(float32(f))))
		} else {
			a.store(math.Float64bits(f))
		}
	case KindBytes:
		b, ok := toBytes(v)
		if !ok {
			return a.mismatch(v)
		}
		if len(b) > e.Width {
			return fmt.Errorf("%w: %d bytes into %s.%s of %d", ErrValueTooLarge, len(b), a.in.Name(), e.Name, e.Width)
		}
		copy(a.raw(), b)
	case KindString:
		s, ok := v.(string)
		if !ok {
			return a.mismatch(v)
		}
		b, err := textEncoding(e.Encoding).NewEncoder().Bytes([]byte(s))
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %w", ErrKindMismatch, a.in.Name(), e.Name, err)
		}
		if len(b)+e.Nul > e.Width {
			return fmt.Errorf("%w: %d bytes with terminator into %s.%s of %d", ErrValueTooLarge, len(b)+e.Nul, a.in.Name(), e.Name, e.Width)
		}
		dst := a.raw()
		copy(dst, b)
		clear(dst[len(b) : len(b)+e.Nul])
	case KindStruct:
		return fmt.Errorf("%w: %s.%s is a nested structure", ErrReadOnly, a.in.Name(), e.Name)
	case KindBits:
		u, ok := toUint64(v)
		if !ok {
			return a.mismatch(v)
		}
		mask := uint64(e.Bit.Mask)
		a.store((a.load() &^ mask) | ((u << e.Bit.Shift) & mask))
	}
	return nil
}

func (a Accessor) mismatch(v any) error {
	e := a.entry()
	return fmt.Errorf("%w: %T into %s field %s.%s", ErrKindMismatch, v, e.Type, a.in.Name(), e.Name)
}

func textEncoding(enc encoding.Encoding) encoding.Encoding {
	if enc != nil {
		return enc
	}
	return unicode.UTF8
}

// nulWidth returns the number of bytes enc spends on one NUL character,
// 1 for single-byte and UTF-8 encodings, 2 for UTF-16 and 4 for UTF-32.
// Encoding two NULs and subtracting one skips any byte order mark.
func nulWidth(enc encoding.Encoding) int {
	one, err := enc.NewEncoder().Bytes([]byte{0})
	if err != nil {
		return 1
	}
	two, err := enc.NewEncoder().Bytes([]byte{0, 0})
	if err != nil || len(two) <= len(one) {
		return 1
	}
	return len(two) - len(one)
}

// nulIndex returns the offset of the first all-zero code unit of width unit
// aligned to the start of b, or -1.
func nulIndex(b []byte, unit int) int {
	if unit <= 1 {
		return bytes.IndexByte(b, 0)
	}
next:
	for i := 0; i+unit <= len(b); i += unit {
		for _, c := range b[i : i+unit] {
			if c != 0 {
				continue next
			}
		}
		return i
	}
	return -1
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(n), true
	case int8:
		return uint64(n), true
	case int16:
		return uint64(n), true
	case int32:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uintptr:
		return uint64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	return nil, false
}
