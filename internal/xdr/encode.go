// Package xdr implements External Data Representation (RFC 4506) encoding
// and decoding: the wire format shared by every RPC-based protocol this
// client speaks (ONC RPC itself, NFSv3, MOUNT, portmap, and NFSv4).
//
// Key characteristics of XDR:
//   - Big-endian byte order for all multi-byte integers
//   - 4-byte alignment for all data types
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded to 4-byte boundaries
//
// This package contains only generic primitives with no dependency on any
// particular protocol's types; protocol packages (rpc, nfs4/ops, mount,
// portmap) build their records and unions on top of it by hand, following
// the same field-order and tag rules a code generator would apply.
package xdr

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ============================================================================
// Encoding - Go values -> wire format
// ============================================================================

// PackUint encodes an unsigned 32-bit integer (RFC 4506 §4.1).
func PackUint(buf *bytes.Buffer, v uint32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	_, err := buf.Write(tmp[:])
	return err
}

// PackInt encodes a signed 32-bit integer (RFC 4506 §4.1).
func PackInt(buf *bytes.Buffer, v int32) error {
	return PackUint(buf, uint32(v))
}

// PackUhyper encodes an unsigned 64-bit integer (RFC 4506 §4.5, "hyper").
func PackUhyper(buf *bytes.Buffer, v uint64) error {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	_, err := buf.Write(tmp[:])
	return err
}

// PackHyper encodes a signed 64-bit integer (RFC 4506 §4.5, "hyper").
func PackHyper(buf *bytes.Buffer, v int64) error {
	return PackUhyper(buf, uint64(v))
}

// PackFloat encodes a 32-bit IEEE float (RFC 4506 §4.6).
func PackFloat(buf *bytes.Buffer, v float32) error {
	return PackUint(buf, math.Float32bits(v))
}

// PackDouble encodes a 64-bit IEEE double (RFC 4506 §4.7).
func PackDouble(buf *bytes.Buffer, v float64) error {
	return PackUhyper(buf, math.Float64bits(v))
}

// PackBool encodes a boolean as a uint, 0 for false and 1 for true
// (RFC 4506 §4.4).
func PackBool(buf *bytes.Buffer, v bool) error {
	if v {
		return PackUint(buf, 1)
	}
	return PackUint(buf, 0)
}

// PackPadding writes zero bytes so that dataLen bytes already written end on
// a 4-byte boundary.
func PackPadding(buf *bytes.Buffer, dataLen int) error {
	pad := (4 - (dataLen % 4)) % 4
	if pad == 0 {
		return nil
	}
	var zero [3]byte
	_, err := buf.Write(zero[:pad])
	return err
}

// PackOpaque encodes variable-length opaque data: a uint length prefix,
// the bytes, then zero padding to a 4-byte boundary (RFC 4506 §4.10).
func PackOpaque(buf *bytes.Buffer, data []byte) error {
	if err := PackUint(buf, uint32(len(data))); err != nil {
		return err
	}
	if _, err := buf.Write(data); err != nil {
		return err
	}
	return PackPadding(buf, len(data))
}

// PackOpaqueFixed encodes a fixed-size byte array: the bytes with no length
// prefix, padded only if len(data) is not already a multiple of 4
// (RFC 4506 §4.9).
func PackOpaqueFixed(buf *bytes.Buffer, data []byte) error {
	if _, err := buf.Write(data); err != nil {
		return err
	}
	return PackPadding(buf, len(data))
}

// PackString encodes a string as variable-length opaque UTF-8 bytes
// (RFC 4506 §4.11).
func PackString(buf *bytes.Buffer, s string) error {
	return PackOpaque(buf, []byte(s))
}

// PackArray encodes a variable-length sequence: a uint length prefix
// followed by pack(item) for each element in order (RFC 4506 §4.13).
func PackArray[T any](buf *bytes.Buffer, items []T, pack func(*bytes.Buffer, T) error) error {
	if err := PackUint(buf, uint32(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := pack(buf, item); err != nil {
			return err
		}
	}
	return nil
}

// PackOptional encodes Optional<T> as a boolean discriminant followed by
// pack(v) iff present (RFC 4506 §4.19).
func PackOptional[T any](buf *bytes.Buffer, present bool, v T, pack func(*bytes.Buffer, T) error) error {
	if err := PackBool(buf, present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return pack(buf, v)
}

// PackUnionTag writes the 32-bit discriminant of a discriminated union
// (RFC 4506 §4.15). A named alias over PackUint so union encode sites read
// self-documenting.
func PackUnionTag(buf *bytes.Buffer, tag uint32) error {
	return PackUint(buf, tag)
}

// Encoder is the interface of a user-defined type that encodes itself to
// XDR through an Encode method. No type in this module implements it: the
// protocol record and union types expose Pack methods instead, packing
// fields in declaration order or a tag then the selected variant's payload.
type Encoder interface {
	Encode(buf *bytes.Buffer) error
}
