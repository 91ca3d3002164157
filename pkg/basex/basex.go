// Package basex encodes non-negative integers in a positional notation over
// a custom alphabet. The default alphabet has 56 characters and omits the
// easily-confused 0/1/l/o/I/O, which keeps encoded story ids safe to read
// aloud and to embed in short URLs.
package basex

import (
	"fmt"
	"strings"
)

// DefaultAlphabet is shared with the readhacker.news short-link scheme.
const DefaultAlphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Encode renders num in the default alphabet.
func Encode(num int64) (string, error) {
	return EncodeWith(num, DefaultAlphabet)
}

// Decode parses a string previously produced by Encode.
func Decode(s string) (int64, error) {
	return DecodeWith(s, DefaultAlphabet)
}

// EncodeWith renders num using the given alphabet. num must be >= 0 and the
// alphabet must have at least two characters.
func EncodeWith(num int64, alphabet string) (string, error) {
	if len(alphabet) < 2 {
		return "", fmt.Errorf("basex: alphabet too short (%d chars)", len(alphabet))
	}
	if num < 0 {
		return "", fmt.Errorf("basex: cannot encode negative number %d", num)
	}
	if num == 0 {
		return alphabet[:1], nil
	}

	base := int64(len(alphabet))
	buf := make([]byte, 0, 12)
	for n := num; n > 0; n /= base {
		buf = append(buf, alphabet[n%base])
	}
	// Digits were produced least-significant first.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// DecodeWith parses s using the given alphabet.
func DecodeWith(s, alphabet string) (int64, error) {
	if len(alphabet) < 2 {
		return 0, fmt.Errorf("basex: alphabet too short (%d chars)", len(alphabet))
	}
	if s == "" {
		return 0, fmt.Errorf("basex: empty input")
	}

	base := int64(len(alphabet))
	var num int64
	for _, c := range []byte(s) {
		idx := strings.IndexByte(alphabet, c)
		if idx == -1 {
			return 0, fmt.Errorf("basex: character %q is not in alphabet", c)
		}
		num = num*base + int64(idx)
	}
	return num, nil
}
