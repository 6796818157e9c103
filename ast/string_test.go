package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []byte
	}{
		{"plain", "hi", []byte("hi")},
		{"newline escape", `a\nb`, []byte("a\nb")},
		{"tab escape", `a\tb`, []byte("a\tb")},
		{"quote escape", `a\"b`, []byte(`a"b`)},
		{"backslash escape", `a\\b`, []byte(`a\b`)},
		{"hex escape", `\68\69`, []byte("hi")},
		{"mixed", `hi\20there`, []byte("hi there")},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeString(tc.raw)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeString_Errors(t *testing.T) {
	_, err := DecodeString(`\`)
	require.Error(t, err)
	_, err = DecodeString(`\gg`)
	require.Error(t, err)
}
