package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrDataIntegrity = errors.New("data integrity error")
	ErrValidation    = errors.New("validation error")
	ErrNotAMember    = errors.New("not a member")

	// ErrExpenseNotFound is returned by an ExpenseStore lookup that matches nothing.
	ErrExpenseNotFound = errors.New("expense not found")
)

// IntegrityError reports an expense excluded from computation because its
// shares cannot be trusted.
type IntegrityError struct {
	ExpenseID int
	Number    int64
	Reason    string
}

func (e *IntegrityError) Error() string {
	if e.Number > 0 {
		return fmt.Sprintf("expense #%d: %s", e.Number, e.Reason)
	}
	return fmt.Sprintf("expense %d: %s", e.ExpenseID, e.Reason)
}

// Unwrap allows errors.Is(err, ErrDataIntegrity).
func (e *IntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

// ValidationError reports a rejected write. Nothing is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotAMemberError reports a user who does not belong to the group.
type NotAMemberError struct {
	GroupID int64
	UserID  int64
}

func (e *NotAMemberError) Error() string {
	return fmt.Sprintf("user %d is not a member of group %d", e.UserID, e.GroupID)
}

// Unwrap allows errors.Is(err, ErrNotAMember).
func (e *NotAMemberError) Unwrap() error {
	return ErrNotAMember
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
