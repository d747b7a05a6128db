package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxMessageLength caps chat message text.
const MaxMessageLength = 1000

var validate = validator.New()

// IsValidMeetingID reports whether id is exactly 6 ASCII digits.
func IsValidMeetingID(id string) bool {
	if len(id) != 6 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// IsValidUserData reports whether uid and name are both non-empty after trimming.
func IsValidUserData(uid, name string) bool {
	return strings.TrimSpace(uid) != "" && strings.TrimSpace(name) != ""
}

// IsValidMessageText reports whether text is non-empty after trimming and
// within the length cap.
func IsValidMessageText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return len(text) <= MaxMessageLength
}

// Struct runs tag-based validation on an inbound payload struct.
func Struct(v interface{}) error {
	return validate.Struct(v)
}
