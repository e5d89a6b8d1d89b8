// Package util provides string helpers for host command arguments.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg strips host quoting and surrounding whitespace from one argument.
func CleanArg(s string) string {
	return strings.TrimSpace(FixEscapeQuotes(TrimQuotes(s)))
}

// FilterPrefix returns the options starting with typed, compared case-insensitively
// against lower-case options. The result is never nil.
func FilterPrefix(options []string, typed string) []string {
	out := []string{}
	typed = strings.ToLower(typed)
	for _, o := range options {
		if strings.HasPrefix(o, typed) {
			out = append(out, o)
		}
	}
	return out
}
