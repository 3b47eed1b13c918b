package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewNotFoundError("addr-1", "account does not exist")
	assert.Equal(t, "NotFoundError: account does not exist (address=addr-1)", err.Error())

	err = NewInvalidInstructionError("unknown program %s", "p")
	assert.Equal(t, "InvalidInstruction: unknown program p", err.Error())
}

func TestErrorHelpersUnwrap(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"authentication", NewAuthenticationError("author", "a", "missing"), IsAuthenticationError},
		{"allocation", NewAllocationError("a", "in use"), IsAllocationError},
		{"capacity", NewCapacityError("a", 2000, 948), IsCapacityError},
		{"not found", NewNotFoundError("a", "missing"), IsNotFoundError},
		{"duplicate", NewDuplicateTransactionError("tx"), IsDuplicateTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(wrapped), "helpers see through wrapping")
		})
	}

	assert.False(t, IsCapacityError(NewNotFoundError("a", "x")))
	assert.False(t, IsCapacityError(errors.New("plain")))
	assert.False(t, IsCapacityError(nil))
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("wrap: %w", NewCapacityError("a", 1, 0)))
	assert.True(t, ok)
	assert.Equal(t, ErrCodeCapacity, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestCapacityErrorDetails(t *testing.T) {
	err := NewCapacityError("a", 2000, 948)
	assert.Equal(t, "2000", err.Details["size"])
	assert.Equal(t, "948", err.Details["capacity"])
}
