package pipeline

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashLength is the number of hex characters used for [hash].
const HashLength = 8

// ContentHash returns the hash used for [hash] placeholders.
func ContentHash(parts ...[]byte) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.Write(p)
	}
	s := strconv.FormatUint(d.Sum64(), 16)
	if len(s) < HashLength {
		s = strings.Repeat("0", HashLength-len(s)) + s
	}
	return s[:HashLength]
}
