package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	ks := make([]Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestTokenizePunctuationDisambiguation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Kind
	}{
		{"colon-pipe beats colon", ":|", []Kind{ColonPipe, EOF}},
		{"colon-arrow beats colon", ":->", []Kind{ColonArrow, EOF}},
		{"arrow beats minus", "->", []Kind{Arrow, EOF}},
		{"ellipsis beats dot", "...", []Kind{Ellipsis, EOF}},
		{"eq beats assign", "==", []Kind{Eq, EOF}},
		{"brace-bang beats brace", "{!", []Kind{BraceBang, EOF}},
		{"double brace beats brace", "{{", []Kind{DoubleLBrace, EOF}},
		{"single quote is text", "'", []Kind{TextPunct, EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.src)
			require.Nil(t, err)
			assert.Equal(t, tt.want, kinds(toks))
		})
	}
}

func TestTokenizeKeywordsBeatIdentifiers(t *testing.T) {
	toks, err := Tokenize("config configuration")
	require.Nil(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, KwConfig, toks[0].Kind)
	assert.Equal(t, Ident, toks[1].Kind)
	assert.Equal(t, "configuration", toks[1].Text)
}

func TestTokenizeStringNoEscapeProcessing(t *testing.T) {
	toks, err := Tokenize(`"a\nb"`)
	require.Nil(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, String, toks[0].Kind)
	assert.Equal(t, `a\nb`, toks[0].Text)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"abc`)
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "unterminated")
}

func TestTokenizeComment(t *testing.T) {
	toks, err := Tokenize("# a comment\nconfig:")
	require.Nil(t, err)
	assert.Equal(t, []Kind{Comment, Newline, KwConfig, Colon, EOF}, kinds(toks))
}

func TestTokenizeNumber(t *testing.T) {
	toks, err := Tokenize("42 3.14")
	require.Nil(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, 42.0, toks[0].Num)
	assert.Equal(t, 3.14, toks[1].Num)
}

func TestLexIndentDedentBalanced(t *testing.T) {
	src := "config:\n   agent_name: \"T\"\n"
	toks, err := Lex(src)
	require.Nil(t, err)

	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case Indent:
			indents++
		case Dedent:
			dedents++
		}
	}
	assert.Equal(t, indents, dedents)
	assert.Equal(t, 1, indents)
}

func TestLexLenientMismatchedDedent(t *testing.T) {
	// Three indent levels, then a dedent straight to column 2, which lies
	// between the top level and the first indent.
	src := "topic a:\n   actions:\n      get_data:\n         target: \"x\"\n  description: \"y\"\n"
	toks, err := Lex(src)
	require.Nil(t, err)

	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case Indent:
			indents++
		case Dedent:
			dedents++
		}
	}
	assert.Equal(t, indents, dedents)
}

func TestLexDedentFlushedBeforeEOF(t *testing.T) {
	src := "config:\n   agent_name: \"T\"\n"
	toks, err := Lex(src)
	require.Nil(t, err)
	last := toks[len(toks)-1]
	assert.Equal(t, EOF, last.Kind)
	assert.Equal(t, Dedent, toks[len(toks)-2].Kind)
}
