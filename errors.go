package cstruct

import "errors"

var (
	// ErrDuplicateDefinition indicates that Declare was called with a name already in the registry.
	ErrDuplicateDefinition = errors.New("cstruct: structure with this name exists")

	// ErrDuplicateField indicates that a named field collides with another field of the same definition.
	ErrDuplicateField = errors.New("cstruct: field with this name exists")

	// ErrInvalidType indicates an unknown type tag, a sized type declared without its size,
	// or a declaration the layout compiler cannot place (bit-field overflow, recursive nesting).
	ErrInvalidType = errors.New("cstruct: invalid field type")

	// ErrUnknownStruct indicates a structure name that is not present in the registry.
	ErrUnknownStruct = errors.New("cstruct: structure with name not defined")

	// ErrBufferTooSmall indicates that an external buffer cannot hold the computed layout.
	ErrBufferTooSmall = errors.New("cstruct: buffer too small for structure")

	// ErrValueTooLarge indicates a CHAR or STRING value that does not fit the field's fixed width.
	ErrValueTooLarge = errors.New("cstruct: value too large for field")

	// ErrNoSuchField indicates an accessor lookup for a name the structure does not declare.
	ErrNoSuchField = errors.New("cstruct: no such field")

	// ErrKindMismatch indicates a Go value that cannot be stored in, or read as, the field's type.
	ErrKindMismatch = errors.New("cstruct: value does not match field type")

	// ErrReadOnly indicates an attempt to replace a nested structure wholesale.
	ErrReadOnly = errors.New("cstruct: field is read-only")

	// ErrTruncatedData indicates that a decode could not complete because the
	// source ended before the whole structure was read.
	ErrTruncatedData = errors.New("cstruct: truncated data")

	// ErrTrailingData is returned by UnmarshalBinary when non-zero bytes are found
	// after the end of the structure.
	ErrTrailingData = errors.New("cstruct: non-zero trailing data found after decoding")
)
