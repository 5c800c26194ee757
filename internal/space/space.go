// Package space converts user-entered space names between their canonical ASCII form
// and the Unicode form shown to visitors.
package space

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// ACEPrefix marks a label carrying an ASCII-compatible (Punycode) encoding.
const ACEPrefix = "xn--"

// Normalize strips a single leading "@" and lower-cases the remainder.
func Normalize(input string) string {
	return strings.ToLower(strings.TrimPrefix(input, "@"))
}

// IsEncoded reports whether any dot-separated label carries the ACE prefix.
func IsEncoded(name string) bool {
	for _, label := range strings.Split(name, ".") {
		if strings.HasPrefix(label, ACEPrefix) {
			return true
		}
	}
	return false
}

// ToDisplay decodes every ACE label of name. Labels without the prefix are kept as-is.
// Any decode failure returns name unchanged.
func ToDisplay(name string) string {
	if !IsEncoded(name) {
		return name
	}
	labels := strings.Split(name, ".")
	for i, label := range labels {
		if !strings.HasPrefix(label, ACEPrefix) {
			continue
		}
		decoded, err := idna.Punycode.ToUnicode(label)
		if err != nil || decoded == "" {
			return name
		}
		labels[i] = decoded
	}
	return strings.Join(labels, ".")
}

// ToEncoded normalizes name and ACE-encodes each label that contains non-ASCII
// characters. When a label cannot be encoded the whole name goes through IDNA lookup
// encoding instead; if that fails too the normalized name is returned.
func ToEncoded(name string) string {
	normalized := Normalize(name)
	labels := strings.Split(normalized, ".")
	for i, label := range labels {
		if isASCII(label) {
			continue
		}
		encoded, err := idna.Punycode.ToASCII(label)
		if err != nil || !strings.HasPrefix(encoded, ACEPrefix) {
			return lookupEncode(normalized)
		}
		labels[i] = encoded
	}
	return strings.Join(labels, ".")
}

// Canonical returns the "@"-prefixed encoded form used to address the backend.
func Canonical(name string) string {
	return "@" + ToEncoded(name)
}

func lookupEncode(normalized string) string {
	if !utf8.ValidString(normalized) {
		return normalized
	}
	encoded, err := idna.Lookup.ToASCII(normalized)
	if err != nil || encoded == "" {
		return normalized
	}
	return encoded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
