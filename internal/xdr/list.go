package xdr

import (
	"bytes"
	"io"
)

// PackLinkedList encodes a sequence of items using RFC 5661's recursive
// linked-list wire shape: Optional<{item, next: Optional<{...}>}>, i.e. one
// boolean-prefixed node per item followed by a final false. READDIR's
// entry4 list is the motivating case; this helper is general enough for
// any protocol record that uses the same shape.
func PackLinkedList[T any](buf *bytes.Buffer, items []T, pack func(*bytes.Buffer, T) error) error {
	for _, item := range items {
		if err := PackBool(buf, true); err != nil {
			return err
		}
		if err := pack(buf, item); err != nil {
			return err
		}
	}
	return PackBool(buf, false)
}

// UnpackLinkedList decodes the same shape back into a flat slice, reading
// a boolean discriminant before each node and stopping at the first false
// rather than building a deep chain of pointers.
func UnpackLinkedList[T any](r io.Reader, unpack func(io.Reader) (T, error)) ([]T, error) {
	var items []T
	for {
		more, err := UnpackBool(r)
		if err != nil {
			return nil, err
		}
		if !more {
			return items, nil
		}
		item, err := unpack(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}
