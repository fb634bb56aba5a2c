package xdr

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/marmos91/nfs4c/internal/result"
)

// MaxOpaqueLength bounds a single variable-length opaque or string decode.
// NFS file handles, attribute blobs, and directory entries are all well
// under this; a length field above it is treated as a malformed packet
// rather than an attempt to allocate unbounded memory.
const MaxOpaqueLength = 1 << 20 // 1 MiB

// ============================================================================
// Decoding - wire format -> Go values
// ============================================================================

// UnpackUint decodes an unsigned 32-bit integer. Fails with
// result.NotEnoughData if fewer than 4 bytes remain.
func UnpackUint(r io.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, result.NotEnoughData
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

// UnpackInt decodes a signed 32-bit integer.
func UnpackInt(r io.Reader) (int32, error) {
	v, err := UnpackUint(r)
	return int32(v), err
}

// UnpackUhyper decodes an unsigned 64-bit integer ("hyper").
func UnpackUhyper(r io.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, result.NotEnoughData
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}

// UnpackHyper decodes a signed 64-bit integer ("hyper").
func UnpackHyper(r io.Reader) (int64, error) {
	v, err := UnpackUhyper(r)
	return int64(v), err
}

// UnpackFloat decodes a 32-bit IEEE float.
func UnpackFloat(r io.Reader) (float32, error) {
	v, err := UnpackUint(r)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// UnpackDouble decodes a 64-bit IEEE double.
func UnpackDouble(r io.Reader) (float64, error) {
	v, err := UnpackUhyper(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// UnpackBool decodes a boolean. Per the wire contract only 0 and 1 are
// legal; any other value is result.InvalidData rather than being coerced
// to "nonzero means true".
func UnpackBool(r io.Reader) (bool, error) {
	v, err := UnpackUint(r)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, result.InvalidData
	}
}

// SkipPadding consumes the zero pad bytes following a dataLen-byte item.
func SkipPadding(r io.Reader, dataLen int) error {
	pad := (4 - (dataLen % 4)) % 4
	if pad == 0 {
		return nil
	}
	var buf [3]byte
	if _, err := io.ReadFull(r, buf[:pad]); err != nil {
		return result.NotEnoughData
	}
	return nil
}

// UnpackOpaqueInto decodes variable-length opaque data the same way as
// UnpackOpaque, but reads the payload into the caller-supplied dst rather
// than allocating a fresh slice, returning the number of bytes read. It
// rejects data longer than len(dst) as result.InvalidData, letting the
// caller size dst to the request it issued (e.g. a READ count) and reuse
// it across calls via a buffer pool.
func UnpackOpaqueInto(r io.Reader, dst []byte) (int, error) {
	length, err := UnpackUint(r)
	if err != nil {
		return 0, err
	}
	if length > MaxOpaqueLength || int(length) > len(dst) {
		return 0, result.InvalidData
	}
	if _, err := io.ReadFull(r, dst[:length]); err != nil {
		return 0, result.NotEnoughData
	}
	if err := SkipPadding(r, int(length)); err != nil {
		return 0, err
	}
	return int(length), nil
}

// UnpackOpaque decodes variable-length opaque data: a uint length prefix,
// that many bytes, then padding to a 4-byte boundary. Rejects a length
// above MaxOpaqueLength as result.InvalidData.
func UnpackOpaque(r io.Reader) ([]byte, error) {
	length, err := UnpackUint(r)
	if err != nil {
		return nil, err
	}
	if length > MaxOpaqueLength {
		return nil, result.InvalidData
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, result.NotEnoughData
	}
	if err := SkipPadding(r, int(length)); err != nil {
		return nil, err
	}
	return data, nil
}

// UnpackOpaqueFixed decodes a fixed-size byte array of exactly n bytes,
// padded only if n is not a multiple of 4.
func UnpackOpaqueFixed(r io.Reader, n int) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, result.NotEnoughData
	}
	if err := SkipPadding(r, n); err != nil {
		return nil, err
	}
	return data, nil
}

// UnpackString decodes variable-length opaque data and validates it as
// UTF-8, per the wire contract for XDR string.
func UnpackString(r io.Reader) (string, error) {
	data, err := UnpackOpaque(r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", result.InvalidData
	}
	return string(data), nil
}

// UnpackArray decodes a variable-length sequence: a uint length prefix
// followed by that many unpack(item) calls.
func UnpackArray[T any](r io.Reader, unpack func(io.Reader) (T, error)) ([]T, error) {
	n, err := UnpackUint(r)
	if err != nil {
		return nil, err
	}
	if n > MaxOpaqueLength {
		return nil, result.InvalidData
	}
	items := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		item, err := unpack(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// UnpackOptional decodes Optional<T>: a boolean discriminant, then
// unpack(v) iff the discriminant is true.
func UnpackOptional[T any](r io.Reader, unpack func(io.Reader) (T, error)) (*T, error) {
	present, err := UnpackBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := unpack(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UnpackUnionTag reads the 32-bit discriminant of a discriminated union.
func UnpackUnionTag(r io.Reader) (uint32, error) {
	return UnpackUint(r)
}

// Decoder is the interface of a user-defined type that decodes itself from
// XDR through a Decode method. No type in this module implements it: the
// protocol record and union types are decoded by Unpack functions instead,
// which read fields in declaration order, or read the tag and dispatch to
// the matching variant, returning result.InvalidData for an unrecognized
// tag.
type Decoder interface {
	Decode(r io.Reader) error
}
