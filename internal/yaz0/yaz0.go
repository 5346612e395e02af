// Package yaz0 implements the Yaz0 block compression wrapper used around
// model and UI archives.
//
// The format is a 16-byte header (magic, big-endian decompressed size, eight
// reserved bytes) followed by bit-grouped literal/backreference data. Decoding
// is strict: a truncated or inconsistent stream returns an error rather than
// partial output, so callers can treat any failure as archive corruption.
package yaz0

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerSize  = 16
	maxDistance = 0x1000
	maxRunLong  = 0x111
)

var magic = []byte("Yaz0")

// ErrNotCompressed is returned by Decompress when the input lacks the Yaz0 magic.
var ErrNotCompressed = errors.New("yaz0: missing magic")

// IsCompressed reports whether data begins with a Yaz0 header.
func IsCompressed(data []byte) bool {
	return len(data) >= headerSize && string(data[:4]) == string(magic)
}

// Decompress expands a Yaz0 stream into its original bytes.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("yaz0: header truncated (%d bytes)", len(data))
	}
	if string(data[:4]) != string(magic) {
		return nil, ErrNotCompressed
	}
	size := binary.BigEndian.Uint32(data[4:8])
	out := make([]byte, 0, size)
	src := data[headerSize:]

	var groupHead byte
	var groupBits int
	pos := 0
	for uint32(len(out)) < size {
		if groupBits == 0 {
			if pos >= len(src) {
				return nil, errors.New("yaz0: stream truncated at group header")
			}
			groupHead = src[pos]
			pos++
			groupBits = 8
		}
		if groupHead&0x80 != 0 {
			if pos >= len(src) {
				return nil, errors.New("yaz0: stream truncated at literal")
			}
			out = append(out, src[pos])
			pos++
		} else {
			if pos+2 > len(src) {
				return nil, errors.New("yaz0: stream truncated at backreference")
			}
			b1, b2 := src[pos], src[pos+1]
			pos += 2
			dist := (int(b1&0x0F) << 8) | int(b2)
			dist++
			length := int(b1 >> 4)
			if length == 0 {
				if pos >= len(src) {
					return nil, errors.New("yaz0: stream truncated at long run")
				}
				length = int(src[pos]) + 0x12
				pos++
			} else {
				length += 2
			}
			start := len(out) - dist
			if start < 0 {
				return nil, fmt.Errorf("yaz0: backreference beyond start (distance %d at offset %d)", dist, len(out))
			}
			for i := 0; i < length; i++ {
				out = append(out, out[start+i])
			}
		}
		groupHead <<= 1
		groupBits--
	}
	if uint32(len(out)) != size {
		return nil, fmt.Errorf("yaz0: decoded %d bytes, header promised %d", len(out), size)
	}
	return out, nil
}

// Compress wraps data in a Yaz0 stream using a greedy backreference search.
// Output always round-trips through Decompress.
func Compress(data []byte) []byte {
	out := make([]byte, headerSize, headerSize+len(data)+len(data)/8+1)
	copy(out, magic)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(data)))

	pos := 0
	for pos < len(data) {
		headIdx := len(out)
		out = append(out, 0)
		var head byte
		for bit := 7; bit >= 0 && pos < len(data); bit-- {
			dist, length := findRun(data, pos)
			if length >= 3 {
				enc := dist - 1
				if length >= 0x12 {
					if length > maxRunLong {
						length = maxRunLong
					}
					out = append(out, byte(enc>>8), byte(enc), byte(length-0x12))
				} else {
					out = append(out, byte((length-2)<<4)|byte(enc>>8), byte(enc))
				}
				pos += length
			} else {
				head |= 1 << uint(bit)
				out = append(out, data[pos])
				pos++
			}
		}
		out[headIdx] = head
	}
	return out
}

// findRun locates the longest earlier occurrence of the bytes at pos within
// the sliding window. Linear scan; archives in this pipeline are small enough
// that the simple search stays off the profile.
func findRun(data []byte, pos int) (dist, length int) {
	windowStart := pos - maxDistance
	if windowStart < 0 {
		windowStart = 0
	}
	maxLen := len(data) - pos
	if maxLen > maxRunLong {
		maxLen = maxRunLong
	}
	if maxLen < 3 {
		return 0, 0
	}
	for start := windowStart; start < pos; start++ {
		n := 0
		for n < maxLen && data[start+n] == data[pos+n] {
			n++
		}
		if n > length {
			length = n
			dist = pos - start
			if length == maxLen {
				break
			}
		}
	}
	return dist, length
}
