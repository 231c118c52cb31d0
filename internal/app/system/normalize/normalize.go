// internal/app/system/normalize/normalize.go

// Package normalize canonicalizes user-supplied string inputs before they
// hit a store or a query filter.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status lowercases and trims a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-form query parameter. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// OrgID trims an organization id filter value. The sentinel "all" (any
// case) means no filter and maps to the empty string.
func OrgID(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
