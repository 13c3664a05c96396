package tx

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a wire value is truncated.
var ErrShortBuffer = errors.New("unexpected end of data")

// appendCompactU16 appends the Solana "shortvec" encoding of n.
func appendCompactU16(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// reader is a bounds-checked cursor over wire bytes.
type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, ErrShortBuffer
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) peekByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, ErrShortBuffer
	}
	return r.data[r.off], nil
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrShortBuffer
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+n])
	r.off += n
	return out, nil
}

// readCompactU16 decodes a shortvec length. Non-canonical encodings are
// rejected so that decode/encode round trips are byte exact.
func (r *reader) readCompactU16() (int, error) {
	var v uint32
	for i := 0; i < 3; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if b == 0 && i > 0 {
				return 0, fmt.Errorf("non-canonical compact-u16")
			}
			if v > 0xffff {
				return 0, fmt.Errorf("compact-u16 overflow")
			}
			return int(v), nil
		}
		if i == 2 {
			return 0, fmt.Errorf("compact-u16 too long")
		}
	}
	return 0, fmt.Errorf("compact-u16 too long")
}

// readBytes reads a shortvec-prefixed byte array.
func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readCompactU16()
	if err != nil {
		return nil, err
	}
	return r.readN(n)
}
