// Package attrs implements the NFSv4.1 fattr4 attribute codec (RFC 5661
// §5): a sparse Bitmap4 selecting which attributes are present, followed
// by a single opaque blob holding their encodings concatenated in
// ascending attribute-number order.
//
// Only the subset of the RFC 5661 attribute space this client needs is
// recognized; an unrecognized bit set by a server reply is simply not
// decoded into FileAttributes (the trailing bytes of the opaque blob are
// left unread), matching a client that only asked for attributes it
// understands.
package attrs

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// Attribute numbers, RFC 5661 §5.
const (
	AttrSupportedAttrs uint32 = 0
	AttrType           uint32 = 1
	AttrFhExpireType   uint32 = 2
	AttrChange         uint32 = 3
	AttrSize           uint32 = 4
	AttrMode           uint32 = 33
	AttrOwner          uint32 = 36
	AttrOwnerGroup     uint32 = 37
)

// NfsType4 is the RFC 5661 file type enumeration.
type NfsType4 uint32

const (
	Nf4Reg       NfsType4 = 1
	Nf4Dir       NfsType4 = 2
	Nf4Blk       NfsType4 = 3
	Nf4Chr       NfsType4 = 4
	Nf4Lnk       NfsType4 = 5
	Nf4Sock      NfsType4 = 6
	Nf4Fifo      NfsType4 = 7
	Nf4AttrDir   NfsType4 = 8
	Nf4NamedAttr NfsType4 = 9
)

// Bitmap4 is RFC 5661's bitmap4: a word vector where bit n of word n/32
// corresponds to attribute number n.
type Bitmap4 struct {
	words []uint32
}

// IsSet reports whether attribute n is present in the bitmap.
func (b Bitmap4) IsSet(n uint32) bool {
	word := n / 32
	bit := n % 32
	if int(word) >= len(b.words) {
		return false
	}
	return b.words[word]&(1<<bit) != 0
}

// Set marks attribute n as present, growing the word vector if needed.
func (b *Bitmap4) Set(n uint32) {
	word := n / 32
	bit := n % 32
	if int(word) >= len(b.words) {
		grown := make([]uint32, word+1)
		copy(grown, b.words)
		b.words = grown
	}
	b.words[word] |= 1 << bit
}

// Pack encodes the bitmap as a uint32 array.
func (b Bitmap4) Pack(buf *bytes.Buffer) error {
	return xdr.PackArray(buf, b.words, xdr.PackUint)
}

// UnpackBitmap4 decodes a bitmap4.
func UnpackBitmap4(r io.Reader) (Bitmap4, error) {
	words, err := xdr.UnpackArray(r, xdr.UnpackUint)
	if err != nil {
		return Bitmap4{}, err
	}
	return Bitmap4{words: words}, nil
}

// FileAttributes is the subset of fattr4 this client understands. Every
// field is a pointer so a nil value distinguishes "not requested/not
// returned" from a zero value actually present on the wire.
type FileAttributes struct {
	SupportedAttrs *Bitmap4
	ObjType        *NfsType4
	FhExpireType   *uint32
	Change         *uint64
	Size           *uint64
	Mode           *uint32
	Owner          *uint32
	OwnerGroup     *uint32
}

// attrField pairs an attribute number with the pack/unpack closures for
// its optional field, letting Pack/Unpack walk the fields once in the
// RFC-mandated ascending attribute-number order instead of hand-writing
// the same eight-branch chain twice.
type attrField struct {
	number uint32
	packed bool
	pack   func(*bytes.Buffer) error
	unpack func(io.Reader) error
}

func (a *FileAttributes) fields() []attrField {
	return []attrField{
		{
			number: AttrSupportedAttrs,
			packed: a.SupportedAttrs != nil,
			pack: func(buf *bytes.Buffer) error {
				return a.SupportedAttrs.Pack(buf)
			},
			unpack: func(r io.Reader) error {
				bm, err := UnpackBitmap4(r)
				if err != nil {
					return err
				}
				a.SupportedAttrs = &bm
				return nil
			},
		},
		{
			number: AttrType,
			packed: a.ObjType != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUint(buf, uint32(*a.ObjType))
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUint(r)
				if err != nil {
					return err
				}
				t := NfsType4(v)
				a.ObjType = &t
				return nil
			},
		},
		{
			number: AttrFhExpireType,
			packed: a.FhExpireType != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUint(buf, *a.FhExpireType)
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUint(r)
				if err != nil {
					return err
				}
				a.FhExpireType = &v
				return nil
			},
		},
		{
			number: AttrChange,
			packed: a.Change != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUhyper(buf, *a.Change)
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUhyper(r)
				if err != nil {
					return err
				}
				a.Change = &v
				return nil
			},
		},
		{
			number: AttrSize,
			packed: a.Size != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUhyper(buf, *a.Size)
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUhyper(r)
				if err != nil {
					return err
				}
				a.Size = &v
				return nil
			},
		},
		{
			number: AttrMode,
			packed: a.Mode != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUint(buf, *a.Mode)
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUint(r)
				if err != nil {
					return err
				}
				a.Mode = &v
				return nil
			},
		},
		{
			number: AttrOwner,
			packed: a.Owner != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUint(buf, *a.Owner)
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUint(r)
				if err != nil {
					return err
				}
				a.Owner = &v
				return nil
			},
		},
		{
			number: AttrOwnerGroup,
			packed: a.OwnerGroup != nil,
			pack: func(buf *bytes.Buffer) error {
				return xdr.PackUint(buf, *a.OwnerGroup)
			},
			unpack: func(r io.Reader) error {
				v, err := xdr.UnpackUint(r)
				if err != nil {
					return err
				}
				a.OwnerGroup = &v
				return nil
			},
		},
	}
}

// CalculateBitmap builds the Bitmap4 corresponding to the fields that are
// currently non-nil.
func (a *FileAttributes) CalculateBitmap() Bitmap4 {
	var bm Bitmap4
	for _, f := range a.fields() {
		if f.packed {
			bm.Set(f.number)
		}
	}
	return bm
}

// Pack encodes the attributes as a bitmap followed by a length-prefixed
// opaque blob of the present fields' encodings, in ascending
// attribute-number order.
func (a *FileAttributes) Pack(buf *bytes.Buffer) error {
	bm := a.CalculateBitmap()
	if err := bm.Pack(buf); err != nil {
		return err
	}

	var opaque bytes.Buffer
	for _, f := range a.fields() {
		if f.packed {
			if err := f.pack(&opaque); err != nil {
				return err
			}
		}
	}
	return xdr.PackOpaque(buf, opaque.Bytes())
}

// UnpackFileAttributes decodes a fattr4, reading each set bit's encoding
// from the opaque blob in ascending order. Bits this client does not
// recognize are skipped by stopping decode at the first of them rather
// than attempting to interpret unknown attribute encodings.
func UnpackFileAttributes(r io.Reader) (*FileAttributes, error) {
	bm, err := UnpackBitmap4(r)
	if err != nil {
		return nil, err
	}
	opaque, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}

	a := &FileAttributes{}
	body := bytes.NewReader(opaque)
	next := uint32(0)
	for _, f := range a.fields() {
		if bm.IsSet(f.number) {
			for n := next; n < f.number; n++ {
				if bm.IsSet(n) {
					return a, nil
				}
			}
			if err := f.unpack(body); err != nil {
				return nil, err
			}
			next = f.number + 1
		}
	}
	return a, nil
}
