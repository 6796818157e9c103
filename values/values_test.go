package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateValue_I32Wraps(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  int32
	}{
		{"zero", 0, 0},
		{"positive in range", 42, 42},
		{"negative in range", -42, -42},
		{"wraps above max uint32", math.Pow(2, 32) + 5, 5},
		{"truncates fraction", 1.9, 1},
		{"negative truncates toward zero", -1.9, -1},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v := CreateValue(I32, tc.input)
			require.Equal(t, I32, v.Type)
			require.Equal(t, tc.want, v.I32())
		})
	}
}

func TestCreateValue_I64InRange(t *testing.T) {
	v := CreateValue(I64, 123456789012)
	require.Equal(t, I64, v.Type)
	require.Equal(t, int64(123456789012), v.I64())
}

func TestCreateValue_Floats(t *testing.T) {
	v32 := CreateValue(F32, 1.5)
	require.Equal(t, F32, v32.Type)
	require.Equal(t, float32(1.5), v32.F32())

	v64 := CreateValue(F64, 1.5)
	require.Equal(t, F64, v64.Type)
	require.Equal(t, 1.5, v64.F64())
}

func TestWasmCompatMinMax_SignedZero(t *testing.T) {
	require.Equal(t, math.Copysign(0, -1), WasmCompatMin(0, math.Copysign(0, -1)))
	require.Equal(t, float64(0), WasmCompatMax(0, math.Copysign(0, -1)))
}

func TestWasmCompatMinMax_NaNPropagates(t *testing.T) {
	require.True(t, math.IsNaN(WasmCompatMin(math.NaN(), 1234)))
	require.True(t, math.IsNaN(WasmCompatMax(math.NaN(), 1234)))
}

func TestF32MinMax_SignedZeroAndNaN(t *testing.T) {
	neg0 := float32(math.Copysign(0, -1))
	require.Equal(t, neg0, F32Min(0, neg0))
	require.Equal(t, float32(0), F32Max(0, neg0))

	nan := float32(math.NaN())
	require.True(t, isNaN32(F32Min(nan, 1)))
	require.True(t, isNaN32(F32Max(nan, 1)))
}

func TestParseType(t *testing.T) {
	tests := []struct {
		name string
		want Type
		ok   bool
	}{
		{"i32", I32, true},
		{"i64", I64, true},
		{"f32", F32, true},
		{"f64", F64, true},
		{"bogus", 0, false},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseType(tc.name)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
