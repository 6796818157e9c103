package ast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		bits int
		want float64
	}{
		{"decimal", "42", 32, 42},
		{"negative decimal", "-42", 32, -42},
		{"hex", "0x2a", 32, 42},
		{"hex negative", "-0x2a", 32, -42},
		{"underscore separators", "1_000_000", 32, 1000000},
		{"i32 wraps at max uint32", "4294967295", 32, -1},
		{"i64 in range", "123456789012", 64, 123456789012},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeInt(tc.raw, tc.bits)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeInt_Errors(t *testing.T) {
	_, err := DecodeInt("", 32)
	require.Error(t, err)
	_, err = DecodeInt("not-a-number", 32)
	require.Error(t, err)
}

func TestParseI32(t *testing.T) {
	v, err := ParseI32("4294967295")
	require.NoError(t, err)
	require.Equal(t, int32(-1), v)
}

func TestDecodeFloat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		bits int
		want float64
	}{
		{"decimal", "1.5", 64, 1.5},
		{"negative", "-1.5", 64, -1.5},
		{"exponent", "1e2", 64, 100},
		{"positive sign", "+1.5", 64, 1.5},
		{"f32 narrows precision", "0.1", 32, float64(float32(0.1))},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeFloat(tc.raw, tc.bits)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeFloat_Specials(t *testing.T) {
	inf, err := DecodeFloat("inf", 64)
	require.NoError(t, err)
	require.True(t, math.IsInf(inf, 1))

	ninf, err := DecodeFloat("-inf", 64)
	require.NoError(t, err)
	require.True(t, math.IsInf(ninf, -1))

	nan, err := DecodeFloat("nan", 64)
	require.NoError(t, err)
	require.True(t, math.IsNaN(nan))

	nanPayload, err := DecodeFloat("nan:0x1", 64)
	require.NoError(t, err)
	require.True(t, math.IsNaN(nanPayload))
}
