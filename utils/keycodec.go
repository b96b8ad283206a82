package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedKey is returned by DecodeKey for input that EncodeKey could not have produced.
var ErrMalformedKey = errors.New("malformed storage key")

// Characters that may not appear in a storage path segment, plus the escape
// character itself so that the mapping stays reversible.
var keyEscapes = map[byte]string{
	'%': "%25",
	'.': "%2E",
	'$': "%24",
	'#': "%23",
	'[': "%5B",
	']': "%5D",
	'/': "%2F",
}

var keyUnescapes = func() map[string]byte {
	m := make(map[string]byte, len(keyEscapes))
	for raw, esc := range keyEscapes {
		m[esc] = raw
	}
	return m
}()

// EncodeKey turns an arbitrary record id into a single path-safe segment.
func EncodeKey(id string) string {
	if !strings.ContainsAny(id, "%.$#[]/") {
		return id
	}
	var b strings.Builder
	b.Grow(len(id) + 8)
	for i := 0; i < len(id); i++ {
		c := id[i]
		if esc, ok := keyEscapes[c]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// DecodeKey is the inverse of EncodeKey. Unknown or truncated escapes are rejected.
func DecodeKey(key string) (string, error) {
	if !strings.Contains(key, "%") {
		if strings.ContainsAny(key, ".$#[]/") {
			return "", fmt.Errorf("%w: %q contains a reserved character", ErrMalformedKey, key)
		}
		return key, nil
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '%':
			if i+3 > len(key) {
				return "", fmt.Errorf("%w: truncated escape in %q", ErrMalformedKey, key)
			}
			raw, ok := keyUnescapes[key[i:i+3]]
			if !ok {
				return "", fmt.Errorf("%w: unknown escape %q", ErrMalformedKey, key[i:i+3])
			}
			b.WriteByte(raw)
			i += 2
		case strings.IndexByte(".$#[]/", c) >= 0:
			return "", fmt.Errorf("%w: %q contains a reserved character", ErrMalformedKey, key)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// MaxKeyLength is the longest id, in bytes, accepted by ValidKey. Encoded it
// takes at most three times as much, which keeps a full record path within the
// 2048 byte path column.
const MaxKeyLength = 256

// ValidKey reports whether id can be used as a record id: non-empty, at most
// MaxKeyLength bytes and free of ASCII control characters.
func ValidKey(id string) bool {
	if id == "" || len(id) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x20 || id[i] == 0x7f {
			return false
		}
	}
	return true
}
