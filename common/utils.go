package common

import "github.com/go-gl/mathgl/mgl32"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Saturate clamps v to the [0, 1] range, matching the shader intrinsic of the same name.
func Saturate(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}

// Lerp linearly interpolates between a and b by t. t is not clamped.
//
// Parameters:
//   - a: the value at t = 0
//   - b: the value at t = 1
//   - t: the interpolation factor
//
// Returns:
//   - float32: a + (b - a) * t
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// CeilDiv returns the number of groups of size d needed to cover n, treating d <= 0 as 1.
//
// Parameters:
//   - n: the total element count
//   - d: the group size
//
// Returns:
//   - uint32: ceil(n / d)
func CeilDiv(n int, d uint32) uint32 {
	if d == 0 {
		d = 1
	}
	if n <= 0 {
		return 0
	}
	return (uint32(n) + d - 1) / d
}
