// Package naming turns untrusted upload names into the collision-free
// filenames used as object-key suffixes.
package naming

import (
	"strings"
	"unicode"
)

const (
	// DefaultBaseName replaces a base name that sanitizes down to nothing.
	DefaultBaseName = "untitled"

	replacement = '_'
)

// Sanitize replaces every rune outside letters, digits, '_', '.', '-' and
// whitespace with '_' and trims surrounding whitespace.
//
// A name whose base (the part before the last '.') is empty or made only of
// dots and spaces keeps its extension and gets DefaultBaseName, so ".txt"
// becomes "untitled.txt" and "" becomes "untitled".
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r):
			return r
		case r == '_', r == '.', r == '-':
			return r
		default:
			return replacement
		}
	}, name)
	cleaned = strings.TrimSpace(cleaned)

	base, ext := cleaned, ""
	if i := strings.LastIndexByte(cleaned, '.'); i >= 0 {
		base, ext = cleaned[:i], cleaned[i:]
	}
	if strings.Trim(base, ". \t") == "" {
		return DefaultBaseName + ext
	}
	return cleaned
}

// splitExt splits name at its last dot. A leading dot does not start an extension.
func splitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
