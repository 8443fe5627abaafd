// Package normalize provides the string normalization rules shared by the
// auth flow and stores, so lookups and writes agree on one canonical form.
package normalize

import "strings"

// Email trims surrounding whitespace. Case is preserved: accounts are
// matched on the exact address the user registered with.
func Email(s string) string {
	return strings.TrimSpace(s)
}

// Name trims whitespace and collapses internal runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role normalizes a role value by trimming whitespace and converting to lowercase.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status normalizes a status value by trimming whitespace and converting to lowercase.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
