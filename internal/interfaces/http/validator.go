package http

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxAccountNameLength = 64

// ValidAccountName checks a profile name taken from the URL path
func ValidAccountName(s string) bool {
	if s == "" || len(s) > MaxAccountNameLength || !utf8.ValidString(s) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsControl) < 0
}
