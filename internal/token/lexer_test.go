package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLex_ParensAndKeywords(t *testing.T) {
	toks, err := Lex([]byte("(module (func))"))
	require.NoError(t, err)
	var kinds []Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.Equal(t, []Kind{OpenParen, Keyword, OpenParen, Keyword, CloseParen, CloseParen}, kinds)
}

func TestLex_SplitsDotIntoValtypeDotName(t *testing.T) {
	toks, err := Lex([]byte("i32.add"))
	require.NoError(t, err)
	require.Len(t, toks, 3)
	require.Equal(t, Valtype, toks[0].Kind)
	require.Equal(t, "i32", toks[0].Value)
	require.Equal(t, Dot, toks[1].Kind)
	require.Equal(t, Name, toks[2].Kind)
	require.Equal(t, "add", toks[2].Value)
}

func TestLex_SplitsEqualIntoKeywordEqualNumber(t *testing.T) {
	toks, err := Lex([]byte("offset=4"))
	require.NoError(t, err)
	require.Len(t, toks, 3)
	require.Equal(t, Keyword, toks[0].Kind)
	require.Equal(t, Equal, toks[1].Kind)
	require.Equal(t, Number, toks[2].Kind)
	require.Equal(t, "4", toks[2].Value)
}

func TestLex_Identifier(t *testing.T) {
	toks, err := Lex([]byte("$my-func"))
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, Identifier, toks[0].Kind)
	require.Equal(t, "$my-func", toks[0].Value)
}

func TestLex_StrayDollarErrors(t *testing.T) {
	_, err := Lex([]byte("$ "))
	require.Error(t, err)
}

func TestLex_String(t *testing.T) {
	toks, err := Lex([]byte(`"hello\n"`))
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, String, toks[0].Kind)
	require.Equal(t, `"hello\n"`, toks[0].Value)
}

func TestLex_UnterminatedStringErrors(t *testing.T) {
	_, err := Lex([]byte(`"hello`))
	require.Error(t, err)
}

func TestLex_LineComment(t *testing.T) {
	toks, err := Lex([]byte(";; hi\n(module)"))
	require.NoError(t, err)
	require.Equal(t, Comment, toks[0].Kind)
	require.Equal(t, OpenParen, toks[1].Kind)
}

func TestLex_NestedBlockComment(t *testing.T) {
	toks, err := Lex([]byte("(; outer (; inner ;) still ;)(module)"))
	require.NoError(t, err)
	require.Equal(t, Comment, toks[0].Kind)
	require.Equal(t, OpenParen, toks[1].Kind)
}

func TestLex_UnterminatedBlockCommentErrors(t *testing.T) {
	_, err := Lex([]byte("(; never closes"))
	require.Error(t, err)
}

func TestLex_NegativeAndHexNumbers(t *testing.T) {
	toks, err := Lex([]byte("-1 0x1p3 +inf nan:0x1"))
	require.NoError(t, err)
	for _, tk := range toks {
		require.Equal(t, Number, tk.Kind)
	}
	require.Equal(t, "-1", toks[0].Value)
	require.Equal(t, "0x1p3", toks[1].Value)
	require.Equal(t, "+inf", toks[2].Value)
	require.Equal(t, "nan:0x1", toks[3].Value)
}

func TestLex_TracksLineAndColumn(t *testing.T) {
	toks, err := Lex([]byte("(module\n  (func))"))
	require.NoError(t, err)
	// the func keyword sits on line 2
	var found bool
	for _, tk := range toks {
		if tk.Kind == Keyword && tk.Value == "func" {
			require.Equal(t, uint32(2), tk.Loc.Start.Line)
			found = true
		}
	}
	require.True(t, found)
}
