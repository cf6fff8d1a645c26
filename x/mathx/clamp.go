package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// InRange reports lo <= v <= hi.
func InRange[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// Trunc converts a float to an integer type, clamped to [lo, hi].
func Trunc[I constraints.Integer, F constraints.Float](v F, lo, hi I) I {
	if v <= F(lo) {
		return lo
	}
	if v >= F(hi) {
		return hi
	}
	return I(v)
}
