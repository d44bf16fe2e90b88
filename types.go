package cstruct

import (
	"fmt"
	"strings"
)

// Type is the tag of a field declaration.
//
// The integer names follow C: (U)LONG is 64-bit, (U)INT is 32-bit and (U)SHORT
// is 16-bit. STRING is a NUL-terminated string and not an alias for CHAR, which
// is a raw byte array. STRUCT refers to another definition. BIT8 and BIT16 are
// bit-fields packed into 1- and 2-byte containers.
type Type uint8

const (
	UINT8 Type = iota
	UINT16
	UINT32
	UINT64
	INT8
	INT16
	INT32
	INT64
	FLOAT32
	FLOAT64
	CHAR
	STRING
	STRUCT
	BIT8
	BIT16

	numTypes
)

// Aliases.
const (
	UBYTE  = UINT8
	USHORT = UINT16
	UINT   = UINT32
	ULONG  = UINT64
	BYTE   = INT8
	BOOL   = INT8
	SHORT  = INT16
	INT    = INT32
	LONG   = INT64
	FLOAT  = FLOAT32
	DOUBLE = FLOAT64
)

// Kind groups types by the accessor that serves them.
type Kind uint8

const (
	KindUint Kind = iota
	KindInt
	KindFloat
	KindBytes
	KindString
	KindStruct
	KindBits
)

var typeNames = [numTypes]string{
	UINT8:   "UINT8",
	UINT16:  "UINT16",
	UINT32:  "UINT32",
	UINT64:  "UINT64",
	INT8:    "INT8",
	INT16:   "INT16",
	INT32:   "INT32",
	INT64:   "INT64",
	FLOAT32: "FLOAT32",
	FLOAT64: "FLOAT64",
	CHAR:    "CHAR",
	STRING:  "STRING",
	STRUCT:  "STRUCT",
	BIT8:    "BIT8",
	BIT16:   "BIT16",
}

var typeAliases = map[string]Type{
	"UBYTE":  UBYTE,
	"USHORT": USHORT,
	"UINT":   UINT,
	"ULONG":  ULONG,
	"BYTE":   BYTE,
	"BOOL":   BOOL,
	"SHORT":  SHORT,
	"INT":    INT,
	"LONG":   LONG,
	"FLOAT":  FLOAT,
	"DOUBLE": DOUBLE,
}

// Valid reports whether t is inside the enum range.
func (t Type) Valid() bool { return t < numTypes }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return typeNames[t]
}

// Kind returns the accessor kind of t.
func (t Type) Kind() Kind {
	switch t {
	case UINT8, UINT16, UINT32, UINT64:
		return KindUint
	case INT8, INT16, INT32, INT64:
		return KindInt
	case FLOAT32, FLOAT64:
		return KindFloat
	case CHAR:
		return KindBytes
	case STRING:
		return KindString
	case STRUCT:
		return KindStruct
	default:
		return KindBits
	}
}

// Width returns the byte width of fixed-size scalars, or the container width of
// bit-fields. Sized types (CHAR, STRING, STRUCT) return 0.
func (t Type) Width() int {
	switch t {
	case UINT8, INT8, BIT8:
		return 1
	case UINT16, INT16, BIT16:
		return 2
	case UINT32, INT32, FLOAT32:
		return 4
	case UINT64, INT64, FLOAT64:
		return 8
	}
	return 0
}

// ParseType resolves a type name or alias, case-insensitively.
func ParseType(name string) (Type, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == upper {
			return Type(t), nil
		}
	}
	if t, ok := typeAliases[upper]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: unknown type name %q", ErrInvalidType, name)
}
