package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameErrorMessage(t *testing.T) {
	err := NewDuplicateNameError("DataFrame", "price", 2)
	assert.Equal(t, `DataFrame: duplicate name: column 'price': expected unique column names, got "price" 2 time(s)`, err.Error())

	err = NewNotSupportedError("Join", "only inner join is supported, got: left")
	assert.Equal(t, "Join: not supported: only inner join is supported, got: left", err.Error())
}

func TestFrameErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := NewInternalError("Collect", cause)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestFrameErrorIsMatchesOnKind(t *testing.T) {
	err := NewColumnNotFoundError("Sort", "missing")

	assert.True(t, stderrors.Is(err, &FrameError{Kind: KindNotFound}))
	assert.True(t, stderrors.Is(err, &FrameError{Kind: KindNotFound, Op: "Sort"}))
	assert.True(t, stderrors.Is(err, &FrameError{Kind: KindNotFound, Column: "missing"}))
	assert.False(t, stderrors.Is(err, &FrameError{Kind: KindNotFound, Op: "Filter"}))
	assert.False(t, stderrors.Is(err, &FrameError{Kind: KindTypeMismatch}))
}

func TestNameCollisionListsAllColumns(t *testing.T) {
	err := NewNameCollisionError("Join", []string{"bar", "foo"})
	assert.Contains(t, err.Error(), "found overlapping columns in join: [bar, foo]")
}

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{NewDuplicateNameError("DataFrame", "a", 2), IsDuplicateName},
		{NewTypeMismatchError("Filter", "flag", "only boolean dtype allowed"), IsTypeMismatch},
		{NewNotSupportedError("Join", "left"), IsNotSupported},
		{NewNameCollisionError("Join", []string{"a"}), IsNameCollision},
		{NewColumnNotFoundError("Select", "a"), IsNotFound},
		{NewInvalidInputError("Sort", "bad flags"), IsInvalidInput},
	}
	for _, tc := range cases {
		require.True(t, tc.pred(tc.err), "predicate failed for %v", tc.err)
	}

	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
	assert.False(t, IsDuplicateName(NewColumnNotFoundError("Select", "a")))
}

func TestKindPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("building frame: %w", NewDuplicateNameError("DataFrame", "x", 2))
	assert.True(t, IsDuplicateName(wrapped))

	var merr *multierror.Error
	merr = multierror.Append(merr, NewDuplicateNameError("DataFrame", "x", 2))
	merr = multierror.Append(merr, NewDuplicateNameError("DataFrame", "y", 3))
	assert.True(t, IsDuplicateName(merr.ErrorOrNil()))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "duplicate name", KindDuplicateName.String())
	assert.Equal(t, "not supported", KindNotSupported.String())
	assert.Equal(t, "internal", KindInternal.String())
}
