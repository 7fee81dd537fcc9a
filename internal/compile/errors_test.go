package compile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := &Error{
		Code:       ErrCodeUnresolvableName,
		Message:    "cannot resolve name",
		Name:       "Nme",
		Type:       "Customer",
		Path:       "Customer.Nme",
		Suggestion: "Name",
	}
	assert.Equal(t,
		`UNRESOLVABLE_NAME: cannot resolve name (name=Nme, type=Customer, path=Customer.Nme); did you mean "Name"?`,
		err.Error())

	bare := &Error{Code: ErrCodeInvalidConfiguration, Message: "root alias cannot be an empty string"}
	assert.Equal(t, "INVALID_CONFIGURATION: root alias cannot be an empty string", bare.Error())
}

func TestError_Predicates(t *testing.T) {
	wrapped := fmt.Errorf("compile filter: %w", usageError("o", "o.Total", "boom"))

	assert.True(t, IsUsageError(wrapped))
	assert.False(t, IsUnresolvableName(wrapped))
	assert.Equal(t, ErrCodeUsage, CodeOf(wrapped))

	assert.True(t, IsInvalidExpression(invalidExpression("x")))
	assert.True(t, IsUnresolvableDynamicMember(&Error{Code: ErrCodeUnresolvableDynamicMember}))

	plain := errors.New("plain")
	assert.False(t, IsUsageError(plain))
	assert.Equal(t, ErrorCode(""), CodeOf(plain))
}
