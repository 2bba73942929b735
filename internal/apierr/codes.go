// Package apierr maps the platform's domain error codes to human messages
// (spec.md §7), recovered from original_source/static/api_error_handle.py.
package apierr

import "github.com/berrizdl/core/internal/domain"

// SuccessCode is the sentinel "code" field value meaning a response carries
// no domain error (spec.md §4.3).
const SuccessCode = "0000"

// messages maps known domain codes to a human-readable message. Unknown
// codes still surface as a DomainError with an empty Message.
var messages = map[string]string{
	"FS_AU4021": "Refresh token invalid or expired",
	"FS_AU4030": "Account suspended",
	"FS_MD9000": "Fanclub-only content",
	"FS_MD9001": "Media not found",
	"FS_MD9002": "Community not found",
	"FS_CM4010": "Not a member of this community",
}

// Describe builds a DomainError for the given server code, attaching the
// known human message when present.
func Describe(code string) *domain.DomainError {
	return &domain.DomainError{Code: code, Message: messages[code]}
}

// IsSuccess reports whether code is the platform's success sentinel.
func IsSuccess(code string) bool {
	return code == "" || code == SuccessCode
}
