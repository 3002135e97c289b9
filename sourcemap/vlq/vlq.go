// Package vlq implements the base64 variable-length quantity encoding used by
// the "mappings" field of version 3 source maps.
package vlq

import (
	"errors"
	"fmt"
	"math"
)

const (
	shiftWidth      = 5
	continuationBit = 1 << shiftWidth
	valueMask       = continuationBit - 1

	// the thirteenth group of 5 bits starts here, only 4 of its bits fit in 64 bits
	maxShift = 60
	lastMask = 1<<(64-maxShift) - 1

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

var (
	// ErrInvalidDigit is returned when a character outside of the base64 alphabet is decoded.
	ErrInvalidDigit = errors.New("vlq: invalid base64 digit")
	// ErrTruncated is returned when the input ends in the middle of a value.
	ErrTruncated = errors.New("vlq: truncated value")
	// ErrOverflow is returned when a value doesn't fit in an int.
	ErrOverflow = errors.New("vlq: value overflows int")
)

var decodeTable = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// AppendEncode appends the VLQ encoding of v to dst and returns the extended
// buffer. v must be in [-math.MaxInt, math.MaxInt], the range Decode can
// return; it panics for math.MinInt, whose magnitude has no room for the sign bit.
func AppendEncode(dst []byte, v int) []byte {
	if v == math.MinInt {
		panic("vlq: math.MinInt can't be encoded")
	}
	var u uint64
	if v < 0 {
		u = uint64(-int64(v))<<1 | 1
	} else {
		u = uint64(v) << 1
	}
	for {
		digit := u & valueMask
		u >>= shiftWidth
		if u > 0 {
			digit |= continuationBit
		}
		dst = append(dst, alphabet[digit])
		if u == 0 {
			return dst
		}
	}
}

// Encode returns the VLQ encoding of v, within the range of AppendEncode.
func Encode(v int) string {
	return string(AppendEncode(make([]byte, 0, 4), v))
}

// Decode reads a single value from the beginning of s. It returns the value
// and the number of bytes consumed.
func Decode(s string) (v int, n int, err error) {
	var (
		u     uint64
		shift uint
	)
	for n < len(s) {
		digit := decodeTable[s[n]]
		if digit < 0 {
			return 0, n, fmt.Errorf("%w %q at offset %d", ErrInvalidDigit, s[n], n)
		}
		n++
		if shift > maxShift || (shift == maxShift && digit&valueMask > lastMask) {
			return 0, n, ErrOverflow
		}
		u |= uint64(digit&valueMask) << shift
		if digit&continuationBit == 0 {
			if u>>1 > math.MaxInt {
				return 0, n, ErrOverflow
			}
			v = int(u >> 1)
			if u&1 == 1 {
				v = -v
			}
			return v, n, nil
		}
		shift += shiftWidth
	}
	return 0, n, ErrTruncated
}
