// Package email provides common email address helpers.
package email

import (
	"regexp"
	"strings"
)

// pattern matches an address-shaped substring: local@domain.tld with a
// TLD of at least two letters.
var pattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Contains reports whether s contains an address-shaped substring.
func Contains(s string) bool {
	return pattern.MatchString(s)
}

// Find returns the first address-shaped substring of s, or "" if none.
func Find(s string) string {
	return pattern.FindString(s)
}

// Domain returns the lowercased domain part of an address.
// Returns empty string if the address has no usable domain.
func Domain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
