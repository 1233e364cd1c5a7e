package utils

import "golang.org/x/exp/constraints"

// Min returns the smaller value between two numbers.
func Min[T constraints.Ordered](x, y T) T {
	if x < y {
		return x
	}
	return y
}

// Max returns the bigger value between two numbers.
func Max[T constraints.Ordered](x, y T) T {
	if x > y {
		return x
	}
	return y
}

// Clamp restricts v to the [lo, hi] interval.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return Max(lo, Min(v, hi))
}

// FloorDiv divides a by b rounding toward negative infinity.
func FloorDiv[T constraints.Signed](a, b T) T {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mid returns the floor of the (a+b)/2 midpoint without overflowing on large operands.
func Mid[T constraints.Signed](a, b T) T {
	return FloorDiv(a, 2) + FloorDiv(b, 2) + (a & b & 1)
}

// Contains returns true if the value is found in the slice.
func Contains[T comparable](slice []T, value T) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}
