package cstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type placement struct {
	name   string
	offset int
	width  int
	shift  uint
	mask   uint16
}

func placements(l *Layout) []placement {
	var got []placement
	for _, e := range l.Entries {
		got = append(got, placement{e.Name, e.Offset, e.Width, e.Bit.Shift, e.Bit.Mask})
	}
	return got
}

func TestCompile_Placement(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		size   int
		want   []placement
	}{
		{
			name: "Scalars",
			fields: []Field{
				{Name: "a", Type: UINT8},
				{Name: "b", Type: UINT16},
				{Name: "c", Type: UINT32},
				{Name: "d", Type: FLOAT64},
				{Name: "e", Type: INT64},
			},
			size: 23,
			want: []placement{{"a", 0, 1, 0, 0}, {"b", 1, 2, 0, 0}, {"c", 3, 4, 0, 0}, {"d", 7, 8, 0, 0}, {"e", 15, 8, 0, 0}},
		},
		{
			name: "SizedArrays",
			fields: []Field{
				{Name: "a", Type: UINT8},
				{Name: "raw", Type: CHAR, Size: 4},
				{Name: "s", Type: STRING, Size: 6},
			},
			size: 11,
			want: []placement{{"a", 0, 1, 0, 0}, {"raw", 1, 4, 0, 0}, {"s", 5, 6, 0, 0}},
		},
		{
			name: "PackedPair",
			fields: []Field{
				{Name: "lo", Type: BIT8, Bits: 3},
				{Name: "hi", Type: BIT8, Bits: 5},
			},
			size: 1,
			want: []placement{{"lo", 0, 1, 0, 0x07}, {"hi", 0, 1, 3, 0xF8}},
		},
		{
			name: "FlushBeforeScalar",
			fields: []Field{
				{Name: "f", Type: BIT8, Bits: 3},
				{Name: "u", Type: UINT8},
			},
			size: 2,
			want: []placement{{"f", 0, 1, 0, 0x07}, {"u", 1, 1, 0, 0}},
		},
		{
			name: "FullContainerFlushesImmediately",
			fields: []Field{
				{Name: "a", Type: BIT8, Bits: 8},
				{Name: "b", Type: BIT8, Bits: 1},
			},
			size: 2,
			want: []placement{{"a", 0, 1, 0, 0xFF}, {"b", 1, 1, 0, 0x01}},
		},
		{
			name: "ContainerWidthChange",
			fields: []Field{
				{Name: "a", Type: BIT8, Bits: 3},
				{Name: "b", Type: BIT16, Bits: 4},
			},
			size: 3,
			want: []placement{{"a", 0, 1, 0, 0x07}, {"b", 1, 2, 0, 0x0F}},
		},
		{
			name: "ZeroWidthFlush",
			fields: []Field{
				{Name: "a", Type: BIT8, Bits: 1},
				{Type: BIT8},
				{Name: "b", Type: BIT8, Bits: 1},
			},
			size: 2,
			want: []placement{{"a", 0, 1, 0, 0x01}, {"b", 1, 1, 0, 0x01}},
		},
		{
			name: "ZeroWidthWithoutContainer",
			fields: []Field{
				{Name: "a", Type: UINT8},
				{Type: BIT16},
				{Name: "b", Type: UINT8},
			},
			size: 2,
			want: []placement{{"a", 0, 1, 0, 0}, {"b", 1, 1, 0, 0}},
		},
		{
			name: "UnnamedPadding",
			fields: []Field{
				{Name: "a", Type: BIT8, Bits: 1},
				{Type: BIT8, Bits: 3},
				{Name: "b", Type: BIT8, Bits: 2},
			},
			size: 1,
			want: []placement{{"a", 0, 1, 0, 0x01}, {"b", 0, 1, 4, 0x30}},
		},
		{
			name: "TrailingBitsFlushAtEnd",
			fields: []Field{
				{Name: "x", Type: UINT16},
				{Name: "y", Type: BIT16, Bits: 1},
			},
			size: 4,
			want: []placement{{"x", 0, 2, 0, 0}, {"y", 2, 2, 0, 0x01}},
		},
		{
			name: "WideBitField",
			fields: []Field{
				{Name: "a", Type: BIT16, Bits: 4},
				{Name: "b", Type: BIT16, Bits: 12},
				{Name: "c", Type: BIT16, Bits: 16},
			},
			size: 4,
			want: []placement{{"a", 0, 2, 0, 0x000F}, {"b", 0, 2, 4, 0xFFF0}, {"c", 2, 2, 0, 0xFFFF}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			declare(t, r, tt.name, tt.fields...)

			l, err := r.Compile(ByName(tt.name), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.size, l.Size)
			assert.Equal(t, tt.want, placements(l))
			assert.Equal(t, Order, l.Order)
		})
	}
}

func TestCompile_Nested(t *testing.T) {
	r := NewRegistry()
	inner := declare(t, r, "Inner",
		Field{Name: "x", Type: UINT8},
		Field{Name: "y", Type: UINT16},
	)
	declare(t, r, "Outer",
		Field{Name: "a", Type: UINT16},
		Field{Name: "b", Type: STRUCT, Struct: ByName("Inner")},
		Field{Name: "c", Type: UINT8},
		Field{Name: "d", Type: STRUCT, Struct: ByDefinition(inner)},
	)

	l, err := r.Compile(ByName("Outer"), LE)
	require.NoError(t, err)
	assert.Equal(t, 9, l.Size)
	assert.Equal(t, []placement{{"a", 0, 2, 0, 0}, {"b", 2, 3, 0, 0}, {"c", 5, 1, 0, 0}, {"d", 6, 3, 0, 0}}, placements(l))

	b, ok := l.Entry("b")
	require.True(t, ok)
	require.NotNil(t, b.Nested)
	assert.Equal(t, "Inner", b.Nested.Name())
	assert.Equal(t, LE, b.Nested.Order, "nested layouts share the byte order")

	_, ok = l.Entry("missing")
	assert.False(t, ok)
}

func TestCompile_Deterministic(t *testing.T) {
	r := NewRegistry()
	declare(t, r, "Inner", Field{Name: "x", Type: BIT16, Bits: 5})
	declare(t, r, "Rec",
		Field{Name: "a", Type: BIT8, Bits: 3},
		Field{Name: "in", Type: STRUCT, Struct: ByName("Inner")},
		Field{Name: "s", Type: STRING, Size: 5, Default: "ok"},
	)

	first, err := r.Compile(ByName("Rec"), BE)
	require.NoError(t, err)
	second, err := r.Compile(ByName("Rec"), BE)
	require.NoError(t, err)
	le, err := r.Compile(ByName("Rec"), LE)
	require.NoError(t, err)

	assert.Equal(t, first.Size, second.Size)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, placements(first), placements(le), "byte order never changes offsets")
	assert.True(t, first.HasDefaults)
}

func TestCompile_HasDefaults(t *testing.T) {
	r := NewRegistry()
	declare(t, r, "Plain", Field{Name: "x", Type: UINT8})
	declare(t, r, "Defaulted", Field{Name: "x", Type: UINT8, Default: 1})
	declare(t, r, "WrapsPlain", Field{Name: "p", Type: STRUCT, Struct: ByName("Plain")})
	declare(t, r, "WrapsDefaulted", Field{Name: "d", Type: STRUCT, Struct: ByName("Defaulted")})

	for name, want := range map[string]bool{
		"Plain":          false,
		"Defaulted":      true,
		"WrapsPlain":     false,
		"WrapsDefaulted": true,
	} {
		l, err := r.Compile(ByName(name), nil)
		require.NoError(t, err)
		assert.Equal(t, want, l.HasDefaults, name)
	}
}

func TestCompile_Errors(t *testing.T) {
	r := NewRegistry()

	t.Run("UnknownStructure", func(t *testing.T) {
		_, err := r.Compile(ByName("Nope"), nil)
		assert.ErrorIs(t, err, ErrUnknownStruct)
	})

	t.Run("UnknownNested", func(t *testing.T) {
		declare(t, r, "Dangling", Field{Name: "n", Type: STRUCT, Struct: ByName("Later")})
		_, err := r.Compile(ByName("Dangling"), nil)
		assert.ErrorIs(t, err, ErrUnknownStruct)

		declare(t, r, "Later", Field{Name: "v", Type: UINT32})
		l, err := r.Compile(ByName("Dangling"), nil)
		require.NoError(t, err)
		assert.Equal(t, 4, l.Size)
	})

	t.Run("BitFieldOverflow", func(t *testing.T) {
		declare(t, r, "Overflow",
			Field{Name: "a", Type: BIT8, Bits: 5},
			Field{Name: "b", Type: BIT8, Bits: 4},
		)
		_, err := r.Compile(ByName("Overflow"), nil)
		assert.ErrorIs(t, err, ErrInvalidType)
	})

	t.Run("SelfNesting", func(t *testing.T) {
		declare(t, r, "Self", Field{Name: "me", Type: STRUCT, Struct: ByName("Self")})
		_, err := r.Compile(ByName("Self"), nil)
		assert.ErrorIs(t, err, ErrInvalidType)
	})

	t.Run("MutualNesting", func(t *testing.T) {
		declare(t, r, "Ping", Field{Name: "p", Type: STRUCT, Struct: ByName("Pong")})
		declare(t, r, "Pong", Field{Name: "p", Type: STRUCT, Struct: ByName("Ping")})
		_, err := r.Compile(ByName("Ping"), nil)
		assert.ErrorIs(t, err, ErrInvalidType)
	})

	t.Run("RepeatedNestingIsNotACycle", func(t *testing.T) {
		declare(t, r, "Leaf", Field{Name: "v", Type: UINT8})
		declare(t, r, "Twice",
			Field{Name: "a", Type: STRUCT, Struct: ByName("Leaf")},
			Field{Name: "b", Type: STRUCT, Struct: ByName("Leaf")},
		)
		l, err := r.Compile(ByName("Twice"), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, l.Size)
	})
}

func TestBitPacker_Flush(t *testing.T) {
	var p bitPacker
	assert.Equal(t, 7, p.flush(7), "flushing without an open container is a no-op")

	size, e, err := p.pack(3, &Field{Name: "a", Type: BIT16, Bits: 3})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 3, size, "the byte cursor stays at the container start while it is open")
	assert.Equal(t, 3, e.Offset)
	assert.True(t, p.isOpen())

	assert.Equal(t, 5, p.flush(size), "an odd container start still spans the whole container")
	assert.False(t, p.isOpen())
}
