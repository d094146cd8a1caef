package common

import "golang.org/x/exp/constraints"

// Numeric constrains the element types group reductions operate on.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// SumOf returns the sum of values.
func SumOf[T Numeric](values []T) T {
	var sum T
	for _, v := range values {
		sum += v
	}
	return sum
}

// MinOf returns the minimum of values and false when values is empty.
func MinOf[T constraints.Ordered](values []T) (T, bool) {
	var minimum T
	if len(values) == 0 {
		return minimum, false
	}
	minimum = values[0]
	for _, v := range values[1:] {
		if v < minimum {
			minimum = v
		}
	}
	return minimum, true
}

// MaxOf returns the maximum of values and false when values is empty.
func MaxOf[T constraints.Ordered](values []T) (T, bool) {
	var maximum T
	if len(values) == 0 {
		return maximum, false
	}
	maximum = values[0]
	for _, v := range values[1:] {
		if v > maximum {
			maximum = v
		}
	}
	return maximum, true
}
