// Package normalize cleans user-supplied strings before they are stored or
// used as lookup keys.
package normalize

import "strings"

// Email trims surrounding whitespace and lower-cases the address.
// Emails are natural keys for users and borrow records, so every write and
// every lookup goes through this.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Text trims and collapses internal runs of whitespace to a single space.
func Text(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims a raw query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
