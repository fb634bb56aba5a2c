package xdr

import (
	"bytes"
	"testing"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PackUint(&buf, 0xdeadbeef))
	require.NoError(t, PackInt(&buf, -42))
	require.NoError(t, PackUhyper(&buf, 0x0102030405060708))
	require.NoError(t, PackHyper(&buf, -1))
	require.NoError(t, PackBool(&buf, true))
	require.NoError(t, PackBool(&buf, false))
	require.NoError(t, PackFloat(&buf, 3.5))
	require.NoError(t, PackDouble(&buf, 2.25))

	u, err := UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u)

	i, err := UnpackInt(&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-42), i)

	uh, err := UnpackUhyper(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), uh)

	h, err := UnpackHyper(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), h)

	b1, err := UnpackBool(&buf)
	require.NoError(t, err)
	assert.True(t, b1)

	b2, err := UnpackBool(&buf)
	require.NoError(t, err)
	assert.False(t, b2)

	f, err := UnpackFloat(&buf)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f)

	d, err := UnpackDouble(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2.25, d)
}

func TestOpaqueRoundTripAndPadding(t *testing.T) {
	cases := []struct {
		name       string
		data       []byte
		wireLength int
	}{
		{"empty", []byte{}, 4},
		{"three bytes pads one", []byte{1, 2, 3}, 4 + 4},
		{"four bytes no pad", []byte{1, 2, 3, 4}, 4 + 4},
		{"five bytes pads three", []byte{1, 2, 3, 4, 5}, 4 + 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, PackOpaque(&buf, tc.data))
			assert.Equal(t, tc.wireLength, buf.Len())

			got, err := UnpackOpaque(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.data, got)
			assert.Equal(t, 0, buf.Len())
		})
	}
}

func TestOpaqueFixedNoLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	sixteen := bytes.Repeat([]byte{0xaa}, 16)
	require.NoError(t, PackOpaqueFixed(&buf, sixteen))
	assert.Equal(t, 16, buf.Len(), "length multiple of 4 needs no padding")

	got, err := UnpackOpaqueFixed(&buf, 16)
	require.NoError(t, err)
	assert.Equal(t, sixteen, got)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PackString(&buf, "hello"))
	s, err := UnpackString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestArrayRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	items := []uint32{1, 2, 3, 4}
	require.NoError(t, PackArray(&buf, items, PackUint))
	got, err := UnpackArray(&buf, UnpackUint)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestOptionalRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PackOptional(&buf, true, uint32(7), PackUint))
	require.NoError(t, PackOptional(&buf, false, uint32(0), PackUint))

	got, err := UnpackOptional(&buf, UnpackUint)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(7), *got)

	got2, err := UnpackOptional(&buf, UnpackUint)
	require.NoError(t, err)
	assert.Nil(t, got2)
}

func TestLinkedListRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	items := []uint32{10, 20, 30}
	require.NoError(t, PackLinkedList(&buf, items, PackUint))

	got, err := UnpackLinkedList(&buf, UnpackUint)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestUnpackBoolRejectsNonCanonicalValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PackUint(&buf, 2))
	_, err := UnpackBool(&buf)
	assert.ErrorIs(t, err, result.InvalidData)
}

func TestUnpackRejectsUnknownTagPattern(t *testing.T) {
	// Simulates a sum-type decoder: an unrecognized tag must surface
	// InvalidData rather than silently falling through to a default
	// variant.
	var buf bytes.Buffer
	require.NoError(t, PackUint(&buf, 9999))

	tag, err := UnpackUnionTag(&buf)
	require.NoError(t, err)

	var decodeErr error
	switch tag {
	case 1, 2:
		// known variants
	default:
		decodeErr = result.InvalidData
	}
	assert.ErrorIs(t, decodeErr, result.InvalidData)
}

func TestUnpackTruncatedBufferFailsWithNotEnoughData(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0})
	_, err := UnpackUint(buf)
	assert.ErrorIs(t, err, result.NotEnoughData)
}

func TestUnpackOpaqueRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PackUint(&buf, MaxOpaqueLength+1))
	_, err := UnpackOpaque(&buf)
	assert.ErrorIs(t, err, result.InvalidData)
}
