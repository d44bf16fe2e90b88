package cstruct

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/constraints"
)

var (
	BE = binary.BigEndian
	LE = binary.LittleEndian
	// Order is the default byte order of materialized instances.
	Order binary.ByteOrder = BE
)

// Roundup rounds n up to the nearest multiple of align.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// CheckBufferNotZeros reports ErrTrailingData if any byte of b is non-zero.
func CheckBufferNotZeros(b []byte) error {
	for i, c := range b {
		if c != 0 {
			return fmt.Errorf("%w: found non-zero byte 0x%02x at offset %d", ErrTrailingData, c, i)
		}
	}
	return nil
}

func orderOrDefault(order binary.ByteOrder) binary.ByteOrder {
	if order == nil {
		return Order
	}
	return order
}
