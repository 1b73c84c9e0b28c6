package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// FantaCrypt is the symmetric substitution cipher old clients apply to some
// keywords. It obfuscates nothing and must match byte for byte.
const (
	cryptKey    = 5
	cryptConst1 = 53761
	cryptConst2 = 32618
)

// Only the low 16 bits of the running key are ever observed, so wrapping
// uint32 arithmetic stays identical to unbounded integers.
func nextKey(key uint32, b byte) uint32 {
	return (uint32(b)+key)*cryptConst1 + cryptConst2
}

func FantaEncrypt(data string) string {
	key := uint32(cryptKey)
	var out strings.Builder
	for i := 0; i < len(data); i++ {
		val := data[i] ^ byte((key&0xffff)>>8)
		fmt.Fprintf(&out, "%02X", val)
		key = nextKey(key, val)
	}
	return out.String()
}

// FantaDecrypt reverses FantaEncrypt. It reports false when data is not a
// whole number of hex bytes.
func FantaDecrypt(data string) (string, bool) {
	if len(data)%2 != 0 {
		return "", false
	}

	key := uint32(cryptKey)
	out := make([]byte, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		value, err := strconv.ParseUint(data[i:i+2], 16, 8)
		if err != nil {
			return "", false
		}
		b := byte(value)
		out = append(out, b^byte((key&0xffff)>>8))
		key = nextKey(key, b)
	}
	return string(out), true
}
