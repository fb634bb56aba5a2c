package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/nfs4/attrs"
	"github.com/marmos91/nfs4c/internal/xdr"
)

// ReadDir4Args is READDIR's argument.
type ReadDir4Args struct {
	Cookie      Cookie4
	Verifier    Verifier4
	DirCount    Count4
	MaxCount    Count4
	AttrRequest attrs.Bitmap4
}

func (a ReadDir4Args) OpCode() uint32 { return OpReadDir }

func (a ReadDir4Args) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUhyper(buf, a.Cookie); err != nil {
		return err
	}
	if err := xdr.PackUhyper(buf, a.Verifier); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.DirCount); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.MaxCount); err != nil {
		return err
	}
	return a.AttrRequest.Pack(buf)
}

// Entry4 is one directory entry. The wire shape is a recursive
// Optional<{item, next}> linked list (see xdr.PackLinkedList); this type
// carries a single entry's fields with the recursion already flattened
// into the surrounding DirList4.Entries slice.
type Entry4 struct {
	Cookie Cookie4
	Name   Component4
	Attrs  *attrs.FileAttributes
}

func unpackEntry4(r io.Reader) (Entry4, error) {
	cookie, err := xdr.UnpackUhyper(r)
	if err != nil {
		return Entry4{}, err
	}
	name, err := xdr.UnpackString(r)
	if err != nil {
		return Entry4{}, err
	}
	fileAttrs, err := attrs.UnpackFileAttributes(r)
	if err != nil {
		return Entry4{}, err
	}
	return Entry4{Cookie: cookie, Name: name, Attrs: fileAttrs}, nil
}

// DirList4 is dirlist4: the flattened entry list plus an EOF marker.
type DirList4 struct {
	Entries []Entry4
	EOF     bool
}

// ReadDir4ResOk is READDIR's result.
type ReadDir4ResOk struct {
	CookieVerf Verifier4
	Reply      DirList4
}

func UnpackReadDir4ResOk(r io.Reader) (*ReadDir4ResOk, error) {
	cookieVerf, err := xdr.UnpackUhyper(r)
	if err != nil {
		return nil, err
	}
	entries, err := xdr.UnpackLinkedList(r, unpackEntry4)
	if err != nil {
		return nil, err
	}
	eof, err := xdr.UnpackBool(r)
	if err != nil {
		return nil, err
	}
	return &ReadDir4ResOk{
		CookieVerf: cookieVerf,
		Reply:      DirList4{Entries: entries, EOF: eof},
	}, nil
}
