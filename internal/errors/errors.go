// Package errors provides standardized error types for frame operations.
// This package defines FrameError for consistent error handling across all
// public APIs, with a kind taxonomy, operation context and error wrapping
// support.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a FrameError. Every validation failure the library can
// produce maps to exactly one kind; callers branch on kinds rather than on
// message text.
type Kind int

const (
	// KindInternal marks unexpected internal failures.
	KindInternal Kind = iota
	// KindInvalidInput marks malformed arguments (mismatched lengths, bad flags).
	KindInvalidInput
	// KindDuplicateName marks frame construction with a repeated column name.
	KindDuplicateName
	// KindTypeMismatch marks a non-boolean filter mask or unsupported dtype.
	KindTypeMismatch
	// KindNotSupported marks a requested operation variant outside the
	// current implementation, such as a non-inner join.
	KindNotSupported
	// KindNameCollision marks overlapping non-key columns in a join.
	KindNameCollision
	// KindNotFound marks an expression referencing a column the frame lacks.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindDuplicateName:
		return "duplicate name"
	case KindTypeMismatch:
		return "type mismatch"
	case KindNotSupported:
		return "not supported"
	case KindNameCollision:
		return "name collision"
	case KindNotFound:
		return "not found"
	default:
		return "internal"
	}
}

// FrameError represents standardized errors across all frame operations.
type FrameError struct {
	Kind    Kind   // Error classification
	Op      string // Operation name (e.g., "Sort", "Filter", "Join")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s: column '%s': %s", e.Op, e.Kind, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is: two FrameErrors match when
// their kinds match and the target leaves Op/Column unconstrained or equal.
func (e *FrameError) Is(target error) bool {
	t, ok := target.(*FrameError)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	if t.Column != "" && t.Column != e.Column {
		return false
	}
	return true
}

// Constructors, one per kind.

// NewDuplicateNameError reports a column name occurring count times at frame
// construction.
func NewDuplicateNameError(op, column string, count int) *FrameError {
	return &FrameError{
		Kind:    KindDuplicateName,
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("expected unique column names, got %q %d time(s)", column, count),
	}
}

// NewTypeMismatchError reports an operation applied to an unsupported dtype.
func NewTypeMismatchError(op, column, message string) *FrameError {
	return &FrameError{Kind: KindTypeMismatch, Op: op, Column: column, Message: message}
}

// NewNotSupportedError reports a requested variant outside the current
// implementation.
func NewNotSupportedError(op, message string) *FrameError {
	return &FrameError{Kind: KindNotSupported, Op: op, Message: message}
}

// NewNameCollisionError reports the full set of colliding non-key columns in
// a join.
func NewNameCollisionError(op string, names []string) *FrameError {
	return &FrameError{
		Kind:    KindNameCollision,
		Op:      op,
		Message: fmt.Sprintf("found overlapping columns in join: [%s]; rename columns to avoid ambiguity", strings.Join(names, ", ")),
	}
}

// NewColumnNotFoundError reports an expression referencing a nonexistent
// column.
func NewColumnNotFoundError(op, column string) *FrameError {
	return &FrameError{Kind: KindNotFound, Op: op, Column: column, Message: "column does not exist"}
}

// NewInvalidInputError reports malformed operation inputs.
func NewInvalidInputError(op, message string) *FrameError {
	return &FrameError{Kind: KindInvalidInput, Op: op, Message: message}
}

// NewInternalError wraps an unexpected internal failure.
func NewInternalError(op string, cause error) *FrameError {
	return &FrameError{Kind: KindInternal, Op: op, Message: "internal error occurred", Cause: cause}
}

// Kind predicates for callers that only need classification.

// kindOf walks err's wrap chain, so predicates classify errors wrapped by
// fmt.Errorf or aggregated by multierror the same as bare FrameErrors.
func kindOf(err error) (Kind, bool) {
	var fe *FrameError
	if !stderrors.As(err, &fe) {
		return KindInternal, false
	}
	return fe.Kind, true
}

// IsDuplicateName reports whether err is a duplicate column name error.
func IsDuplicateName(err error) bool { k, ok := kindOf(err); return ok && k == KindDuplicateName }

// IsTypeMismatch reports whether err is a dtype mismatch error.
func IsTypeMismatch(err error) bool { k, ok := kindOf(err); return ok && k == KindTypeMismatch }

// IsNotSupported reports whether err marks an unsupported operation variant.
func IsNotSupported(err error) bool { k, ok := kindOf(err); return ok && k == KindNotSupported }

// IsNameCollision reports whether err is a join column collision error.
func IsNameCollision(err error) bool { k, ok := kindOf(err); return ok && k == KindNameCollision }

// IsNotFound reports whether err is a missing column error.
func IsNotFound(err error) bool { k, ok := kindOf(err); return ok && k == KindNotFound }

// IsInvalidInput reports whether err is a malformed input error.
func IsInvalidInput(err error) bool { k, ok := kindOf(err); return ok && k == KindInvalidInput }
