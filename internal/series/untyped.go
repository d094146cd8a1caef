package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// untyped wraps an existing arrow.Array as a Column without re-materializing
// it into a Go slice. Engine operations that already produce arrow arrays
// (filter, take, join) use this to hand columns back to the frame layer.
type untyped struct {
	name  string
	array arrow.Array
}

// FromArray wraps an arrow.Array as a Column, retaining a reference. The
// caller keeps its own reference and remains responsible for releasing it.
func FromArray(name string, arr arrow.Array) Column {
	arr.Retain()
	return &untyped{name: name, array: arr}
}

// Rename returns a Column sharing col's storage under a new name.
func Rename(col Column, name string) Column {
	arr := col.Array()
	defer arr.Release()
	return FromArray(name, arr)
}

func (u *untyped) Name() string { return u.name }

func (u *untyped) Len() int { return u.array.Len() }

func (u *untyped) DataType() arrow.DataType { return u.array.DataType() }

func (u *untyped) IsNull(index int) bool { return u.array.IsNull(index) }

func (u *untyped) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", u.array.DataType().Name(), u.name, u.array.Len())
}

func (u *untyped) Array() arrow.Array {
	u.array.Retain()
	return u.array
}

func (u *untyped) Release() {
	if u.array != nil {
		u.array.Release()
	}
}
