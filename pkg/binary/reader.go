// Package binary implements the small little-endian, varuint-length-prefixed
// reader shared by the ABI-driven variant serializer and the account
// projector's native system-action decoding. It is a deliberately bounded
// stand-in for the full EOS binary ABI codec (see DESIGN.md).
package binary

import (
	"encoding/binary"
	"fmt"
)

// Reader reads primitive EOS wire values from a byte slice.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reads.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("unexpected end of stream")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("unexpected end of stream: want %d have %d", n, r.Remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Varuint reads an unsigned LEB128 varint.
func (r *Reader) Varuint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.Byte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("varuint too long")
		}
	}
	return result, nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// VarBytes reads a varuint-length-prefixed byte string.
func (r *Reader) VarBytes() ([]byte, error) {
	n, err := r.Varuint()
	if err != nil {
		return nil, err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// String reads a varuint-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	b, err := r.VarBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Name reads a packed 8-byte EOS name and renders its base32 string form.
func (r *Reader) Name() (string, error) {
	v, err := r.Uint64()
	if err != nil {
		return "", err
	}
	return DecodeName(v), nil
}

// DecodeName renders a packed EOS-style name back to its base32 string form.
func DecodeName(v uint64) string {
	const charmap = ".12345abcdefghijklmnopqrstuvwxyz"
	var buf [13]byte
	tmp := v
	for i := 12; i >= 0; i-- {
		var idx uint64
		if i == 12 {
			idx = tmp & 0x0f
		} else {
			idx = tmp & 0x1f
		}
		buf[i] = charmap[idx]
		if i == 12 {
			tmp >>= 4
		} else {
			tmp >>= 5
		}
	}
	s := string(buf[:])
	end := len(s)
	for end > 0 && s[end-1] == '.' {
		end--
	}
	return s[:end]
}
