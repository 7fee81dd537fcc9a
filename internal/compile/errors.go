package compile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes compilation failures.
type ErrorCode string

const (
	// ErrCodeUsage indicates a lambda path ordering violation: $it inside a
	// lambda, a lambda path not starting with its parameter, or a lambda
	// parameter used outside its sub-predicate.
	ErrCodeUsage ErrorCode = "USAGE_ERROR"

	// ErrCodeUnresolvableName indicates a segment matched no property or
	// field, even after the base shortcut retry.
	ErrCodeUnresolvableName ErrorCode = "UNRESOLVABLE_NAME"

	// ErrCodeUnresolvableDynamicMember indicates a dynamic component has no
	// member at the accumulated path.
	ErrCodeUnresolvableDynamicMember ErrorCode = "UNRESOLVABLE_DYNAMIC_MEMBER"

	// ErrCodeInvalidConfiguration indicates bad compiler options, such as
	// an empty root alias.
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"

	// ErrCodeInvalidExpression indicates a structurally invalid tree:
	// wrong method arity, any/all over a non-collection, unknown root type.
	ErrCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
)

// Error is the single structured failure a compilation reports. There are
// no partial results: when Compile returns an *Error nothing was produced.
type Error struct {
	Code    ErrorCode
	Message string

	// Name is the offending segment or parameter name.
	Name string

	// Type is the owning type the name was resolved against.
	Type string

	// Path is the accumulated path at the point of failure.
	Path string

	// Suggestion is the closest known member name or path, if any.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var details []string
	if e.Name != "" {
		details = append(details, "name="+e.Name)
	}
	if e.Type != "" {
		details = append(details, "type="+e.Type)
	}
	if e.Path != "" {
		details = append(details, "path="+e.Path)
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "; did you mean %q?", e.Suggestion)
	}
	return b.String()
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsUsageError reports whether err is a lambda usage error.
func IsUsageError(err error) bool { return hasCode(err, ErrCodeUsage) }

// IsUnresolvableName reports whether err is an unresolved member name.
func IsUnresolvableName(err error) bool { return hasCode(err, ErrCodeUnresolvableName) }

// IsUnresolvableDynamicMember reports whether err is an unresolved dynamic
// component member.
func IsUnresolvableDynamicMember(err error) bool {
	return hasCode(err, ErrCodeUnresolvableDynamicMember)
}

// IsInvalidConfiguration reports whether err is a configuration error.
func IsInvalidConfiguration(err error) bool { return hasCode(err, ErrCodeInvalidConfiguration) }

// IsInvalidExpression reports whether err is a malformed tree.
func IsInvalidExpression(err error) bool { return hasCode(err, ErrCodeInvalidExpression) }

// CodeOf returns the code of the *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func usageError(name, path, msg string) *Error {
	return &Error{Code: ErrCodeUsage, Message: msg, Name: name, Path: path}
}

func invalidExpression(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidExpression, Message: fmt.Sprintf(format, args...)}
}
