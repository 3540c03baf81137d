package engine

import (
	"strings"

	"github.com/google/uuid"
)

// placeholderPatterns are the known ways an LLM echoes a tool schema's
// user_id placeholder instead of supplying the real value.
var placeholderPatterns = []string{
	"user_id",
	"<user_id>",
	"the exact user id from input",
	"the user's id",
	"the user id",
	"current_user_id",
	"{user_id}",
}

// looksLikePlaceholder reports whether v is one of the known placeholder
// spellings for a user_id argument, case-insensitively, after trimming
// surrounding whitespace. Angle brackets and braces are not stripped; those
// spellings are listed in placeholderPatterns as they stand.
func looksLikePlaceholder(v string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(v))
	for _, p := range placeholderPatterns {
		if trimmed == p {
			return true
		}
	}
	return false
}

// isRealUserID reports whether v is a real identifier that must never be
// rewritten: a UUID v4, or (conservatively) anything that doesn't match a
// known placeholder pattern at all.
func isRealUserID(v string) bool {
	if parsed, err := uuid.Parse(v); err == nil && parsed.Version() == 4 {
		return true
	}
	return !looksLikePlaceholder(v)
}

// rewritePlaceholderUserID applies the placeholder-argument injection rule:
// a "user_id" argument that looks like a schema placeholder is replaced
// with requestUserID; a real UUID v4 or any other non-placeholder value is
// left untouched. Returns a new map; arguments is never mutated in place.
func rewritePlaceholderUserID(arguments map[string]any, requestUserID string) map[string]any {
	if arguments == nil {
		return nil
	}
	raw, ok := arguments["user_id"]
	if !ok {
		return arguments
	}
	s, ok := raw.(string)
	if !ok || isRealUserID(s) {
		return arguments
	}
	out := make(map[string]any, len(arguments))
	for k, v := range arguments {
		out[k] = v
	}
	out["user_id"] = requestUserID
	return out
}
