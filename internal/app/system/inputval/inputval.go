// Package inputval validates and sanitizes user-provided input before
// it reaches a store or a fanout message. Titles, descriptions, and
// notification messages are plain text; any markup is stripped rather
// than escaped.
package inputval

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// strict strips all HTML elements and attributes.
var strict = bluemonday.StrictPolicy()

// CleanText strips markup and surrounding whitespace from free-form
// text input.
func CleanText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// IsValidEmail reports whether s is a bare addr-spec (local@domain).
// Display-name forms ("Name <a@b>") are rejected. Single-label domains
// are allowed so dev/test environments like user@localhost work.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if badDots(local) || badDots(domain) {
		return false
	}
	return true
}

func badDots(part string) bool {
	return strings.HasPrefix(part, ".") ||
		strings.HasSuffix(part, ".") ||
		strings.Contains(part, "..")
}

// IsValidObjectID reports whether s parses as a Mongo ObjectID hex
// string. Handlers use it to reject malformed path params early.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
