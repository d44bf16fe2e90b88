package cstruct

import "fmt"

// bitPacker tracks the open bit-field container while a layout is compiled.
// Containers are never split: a field must fit in the bits left in the open one.
type bitPacker struct {
	start  int // byte offset of the open container
	cursor int // bits used since start
	bits   int // container width in bits, 0 when no container is open
}

func (p *bitPacker) isOpen() bool { return p.bits != 0 }

// flush closes the open container and returns the byte cursor past it.
// A partially filled container still occupies its whole width.
func (p *bitPacker) flush(size int) int {
	if !p.isOpen() {
		return size
	}
	size = p.start + Roundup(p.cursor, p.bits)/8
	*p = bitPacker{}
	return size
}

// pack places the bit-field f at the current cursor. It returns the new byte
// cursor and the entry for f, which is nil for padding and flush requests.
func (p *bitPacker) pack(size int, f *Field) (int, *Entry, error) {
	width := f.Type.Width() * 8
	if p.isOpen() && p.bits != width {
		size = p.flush(size)
	}
	if f.Bits == 0 {
		return p.flush(size), nil, nil
	}
	if !p.isOpen() {
		*p = bitPacker{start: size, bits: width}
	}

	shift := p.cursor % p.bits
	if shift+f.Bits > p.bits {
		return size, nil, fmt.Errorf("%w: %s field %q needs %d bits, %d left in container at offset %d",
			ErrInvalidType, f.Type, f.Name, f.Bits, p.bits-shift, p.start)
	}

	var e *Entry
	if f.Name != "" {
		e = &Entry{
			Name:   f.Name,
			Type:   f.Type,
			Offset: p.start,
			Width:  p.bits / 8,
			Bit: BitPlacement{
				Shift: uint(shift),
				Width: uint(f.Bits),
				Mask:  uint16((1<<f.Bits)-1) << shift,
			},
			Default: f.Default,
		}
	}

	p.cursor += f.Bits
	if p.cursor == p.bits {
		size = p.flush(size)
	}
	return size, e, nil
}
