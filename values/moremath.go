package values

import "math"

// WasmCompatMin mirrors math.Min except it follows the WebAssembly rule that
// either operand being NaN produces NaN, and -0 is considered smaller than
// +0. Ported from the teacher's internal/moremath package, generalized to
// serve both f32.min and f64.min.
func WasmCompatMin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// WasmCompatMax mirrors math.Max with the WebAssembly NaN/sign-of-zero rules.
func WasmCompatMax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

// F32Min/F32Max apply the same rule at float32 precision, rounding inputs
// through float64 arithmetic only for the comparison, never for the result.
func F32Min(x, y float32) float32 {
	switch {
	case isNaN32(x) || isNaN32(y):
		return float32(math.NaN())
	case math.IsInf(float64(x), -1) || math.IsInf(float64(y), -1):
		return float32(math.Inf(-1))
	case x == 0 && x == y:
		if math.Signbit(float64(x)) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

func F32Max(x, y float32) float32 {
	switch {
	case isNaN32(x) || isNaN32(y):
		return float32(math.NaN())
	case math.IsInf(float64(x), 1) || math.IsInf(float64(y), 1):
		return float32(math.Inf(1))
	case x == 0 && x == y:
		if math.Signbit(float64(x)) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

func isNaN32(f float32) bool { return f != f }
