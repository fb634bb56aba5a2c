package attrs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap4SetIsSetRoundTrip(t *testing.T) {
	var bm Bitmap4
	bm.Set(AttrSize)
	bm.Set(AttrOwnerGroup)

	assert.True(t, bm.IsSet(AttrSize))
	assert.True(t, bm.IsSet(AttrOwnerGroup))
	assert.False(t, bm.IsSet(AttrMode))
}

func TestBitmap4PackUnpackRoundTrip(t *testing.T) {
	var bm Bitmap4
	bm.Set(AttrType)
	bm.Set(AttrChange)

	var buf bytes.Buffer
	require.NoError(t, bm.Pack(&buf))

	got, err := UnpackBitmap4(&buf)
	require.NoError(t, err)
	assert.True(t, got.IsSet(AttrType))
	assert.True(t, got.IsSet(AttrChange))
	assert.False(t, got.IsSet(AttrSize))
}

func TestFileAttributesPackUnpackRoundTrip(t *testing.T) {
	size := uint64(4096)
	mode := uint32(0o755)
	owner := uint32(1000)
	ownerGroup := uint32(1000)
	objType := Nf4Reg

	original := &FileAttributes{
		Size:       &size,
		Mode:       &mode,
		Owner:      &owner,
		OwnerGroup: &ownerGroup,
		ObjType:    &objType,
	}

	var buf bytes.Buffer
	require.NoError(t, original.Pack(&buf))

	got, err := UnpackFileAttributes(&buf)
	require.NoError(t, err)

	require.NotNil(t, got.Size)
	assert.Equal(t, size, *got.Size)
	require.NotNil(t, got.Mode)
	assert.Equal(t, mode, *got.Mode)
	require.NotNil(t, got.Owner)
	assert.Equal(t, owner, *got.Owner)
	require.NotNil(t, got.OwnerGroup)
	assert.Equal(t, ownerGroup, *got.OwnerGroup)
	require.NotNil(t, got.ObjType)
	assert.Equal(t, objType, *got.ObjType)
	assert.Nil(t, got.Change)
	assert.Nil(t, got.FhExpireType)
	assert.Nil(t, got.SupportedAttrs)
}

func TestFileAttributesOnlyPacksPresentFields(t *testing.T) {
	size := uint64(128)
	a := &FileAttributes{Size: &size}

	var buf bytes.Buffer
	require.NoError(t, a.Pack(&buf))

	bm := a.CalculateBitmap()
	assert.True(t, bm.IsSet(AttrSize))
	assert.False(t, bm.IsSet(AttrMode))
	assert.False(t, bm.IsSet(AttrOwner))
}
