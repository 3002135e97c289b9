package vlq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		value    int
		expected string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{-15, "f"},
		{16, "gB"},
		{-16, "hB"},
		{123, "2H"},
		{1000, "w+B"},
		{-1000, "x+B"},
		{1 << 20, "ggggC"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Encode(tc.value))

			v, n, err := Decode(tc.expected)
			require.NoError(t, err)
			assert.Equal(t, tc.value, v)
			assert.Equal(t, len(tc.expected), n)
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	for v := -5000; v <= 5000; v += 7 {
		got, n, err := Decode(Encode(v))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(Encode(v)), n)
	}
	for _, v := range []int{1 << 31, -(1 << 31), 1<<40 + 3, -(1<<50 + 11)} {
		got, _, err := Decode(Encode(v))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestDecodeConsumesOneValue(t *testing.T) {
	t.Parallel()

	v, n, err := Decode("gBC")
	require.NoError(t, err)
	assert.Equal(t, 16, v)
	assert.Equal(t, 2, n)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Decode("")
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = Decode("g")
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = Decode("A=")
	require.NoError(t, err, "only the first value is read")

	_, _, err = Decode("=")
	assert.ErrorIs(t, err, ErrInvalidDigit)

	_, _, err = Decode("gggggggggggggggggA")
	assert.ErrorIs(t, err, ErrOverflow)

	_, _, err = Decode("////////////f")
	assert.ErrorIs(t, err, ErrOverflow, "the last group has 4 bits of room")
}

func TestEncodeRange(t *testing.T) {
	t.Parallel()

	for _, v := range []int{math.MaxInt, -math.MaxInt, math.MaxInt - 1} {
		s := Encode(v)
		got, n, err := Decode(s)
		require.NoError(t, err, s)
		assert.Equal(t, v, got)
		assert.Equal(t, len(s), n)
	}
	assert.Panics(t, func() { Encode(math.MinInt) })
}
