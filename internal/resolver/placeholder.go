package resolver

import "strings"

var placeholders = map[string]struct{}{
	"":          {},
	"unknown":   {},
	"n/a":       {},
	"na":        {},
	"none":      {},
	"null":      {},
	"nil":       {},
	"undefined": {},
	"tbd":       {},
	"-":         {},
	"?":         {},
}

// isPlaceholder reports whether s is empty or a stand-in for missing metadata.
func isPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
