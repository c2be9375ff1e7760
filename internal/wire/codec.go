package wire

import "fmt"

// Codec transforms a serialized packet before it goes through the
// text-safe transport encoding, and undoes the transform on the way in.
// Decode must be the exact inverse of Encode for anything Encode
// produced. Implementations slot in compression or obfuscation without
// touching framing or scheduling.
type Codec interface {
	Encode(src []byte) ([]byte, error)
	Decode(src []byte) ([]byte, error)
}

// CodecError wraps a payload-codec failure. Callers treat it like a
// framing error: drop the item and continue.
type CodecError struct {
	Op  string // "encode" or "decode"
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("wire: codec %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// Plain is the identity codec and the default.
type Plain struct{}

func (Plain) Encode(src []byte) ([]byte, error) { return src, nil }
func (Plain) Decode(src []byte) ([]byte, error) { return src, nil }

// Chain applies codecs left-to-right on encode and right-to-left on
// decode, so a stacked pipeline stays invertible.
type Chain []Codec

func (c Chain) Encode(src []byte) ([]byte, error) {
	var err error
	for _, stage := range c {
		src, err = stage.Encode(src)
		if err != nil {
			return nil, &CodecError{Op: "encode", Err: err}
		}
	}
	return src, nil
}

func (c Chain) Decode(src []byte) ([]byte, error) {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		src, err = c[i].Decode(src)
		if err != nil {
			return nil, &CodecError{Op: "decode", Err: err}
		}
	}
	return src, nil
}
