package cstruct

import (
	"encoding"
	"errors"
	"fmt"
	"io"
)

// Sizer is an interface for types that can report their binary size.
type Sizer interface {
	// Size returns the size of the type in bytes when binary encoded.
	Size() int
}

// Marshaler defines the methods for encoding an object into a byte stream.
type Marshaler interface {
	encoding.BinaryMarshaler // Method: MarshalBinary() ([]byte, error)
	io.WriterTo              // Method: WriteTo(writer io.Writer) (int64, error)

	// MarshalTo encodes the object into a pre-allocated buffer, returning
	// io.ErrShortBuffer if the buffer is too small.
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler defines the methods for decoding a byte stream into an object.
type Unmarshaler interface {
	encoding.BinaryUnmarshaler // Method: UnmarshalBinary(data []byte) error
	io.ReaderFrom              // Method: ReadFrom(r io.Reader) (int64, error)
}

// Codec aggregates all binary serialization and deserialization interfaces.
type Codec interface {
	Sizer
	Marshaler
	Unmarshaler
}

// Statically assert that Instance implements Codec.
var _ Codec = (*Instance)(nil)

// MarshalBinary returns a copy of the instance bytes.
func (in *Instance) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), in.Bytes()...), nil
}

// MarshalTo copies the instance bytes into p.
func (in *Instance) MarshalTo(p []byte) (int, error) {
	if len(p) < in.Size() {
		return 0, io.ErrShortBuffer
	}
	return copy(p, in.Bytes()), nil
}

// WriteTo writes the instance bytes to w.
func (in *Instance) WriteTo(w io.Writer) (int64, error) {
	b := in.Bytes()
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n < len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

// UnmarshalBinary overwrites the instance with the front of data. Unlike
// FromBytes it is strict: data shorter than the structure fails with
// ErrTruncatedData and non-zero bytes after it fail with ErrTrailingData.
// The instance is left untouched on error.
func (in *Instance) UnmarshalBinary(data []byte) error {
	size := in.Size()
	if len(data) < size {
		return fmt.Errorf("%w: expected at least %d bytes, but got %d", ErrTruncatedData, size, len(data))
	}
	if err := CheckBufferNotZeros(data[size:]); err != nil {
		return err
	}
	copy(in.Bytes(), data)
	return nil
}

// ReadFrom reads exactly Size bytes from r into the instance. A stream that
// ends early leaves the bytes read so far in place and fails with ErrTruncatedData.
func (in *Instance) ReadFrom(r io.Reader) (int64, error) {
	n, err := io.ReadFull(r, in.Bytes())
	if errors.Is(err, io.ErrUnexpectedEOF) || (errors.Is(err, io.EOF) && in.Size() > 0) {
		return int64(n), fmt.Errorf("%w: expected %d bytes, but read %d", ErrTruncatedData, in.Size(), n)
	}
	return int64(n), err
}
