package types

import "unicode/utf8"

// Reaction is a single emoji (or short emoji sequence) attached to a message.
type Reaction string

// maxReactionBytes bounds a reaction to a short emoji sequence; long strings
// indicate the caller skipped upstream validation.
const maxReactionBytes = 40

// IsValid reports whether the reaction is a structurally acceptable encoding.
// Content-level validation (is it a known emoji) happens upstream.
func (r Reaction) IsValid() bool {
	if len(r) == 0 || len(r) > maxReactionBytes {
		return false
	}
	return utf8.ValidString(string(r))
}
