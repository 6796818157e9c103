package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyBareword(t *testing.T) {
	tests := []struct {
		word string
		want Kind
	}{
		{"i32", Valtype},
		{"f64", Valtype},
		{"module", Keyword},
		{"block", Keyword},
		{"add", Name},
		{"get_local", Name},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.word, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyBareword(tc.word))
		})
	}
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "valtype", Valtype.String())
	require.Equal(t, "eof", EOF.String())
}
