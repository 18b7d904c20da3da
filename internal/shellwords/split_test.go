package shellwords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSimpleWords(t *testing.T) {
	got, err := Split("open file c0 /tmp/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "file", "c0", "/tmp/x"}, got)
}

func TestSplitCollapsesRepeatedSpaces(t *testing.T) {
	got, err := Split("write   0   hello   world")
	require.NoError(t, err)
	assert.Equal(t, []string{"write", "0", "hello", "world"}, got)
}

func TestSplitQuotedTokenKeepsInternalSpaces(t *testing.T) {
	got, err := Split(`parexp 0 "hello world" 5`)
	require.NoError(t, err)
	assert.Equal(t, []string{"parexp", "0", "hello world", "5"}, got)
}

func TestSplitEmptyQuotedTokenIsPreserved(t *testing.T) {
	got, err := Split(`write 0 ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"write", "0", ""}, got)
}

func TestSplitBackslashEscapesControlCharacters(t *testing.T) {
	got, err := Split(`write 0 a\tb\n`)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a\tb\n", got[2])
}

func TestSplitBackslashEscapesLiteralCharacter(t *testing.T) {
	got, err := Split(`write 0 a\"b`)
	require.NoError(t, err)
	assert.Equal(t, []string{"write", "0", `a"b`}, got)
}

func TestSplitUnterminatedQuoteIsMalformed(t *testing.T) {
	_, err := Split(`write 0 "unterminated`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSplitTrailingBackslashIsMalformed(t *testing.T) {
	_, err := Split(`write 0 trailing\`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSplitEmptyLineYieldsNoTokens(t *testing.T) {
	got, err := Split("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitWhitespaceOnlyLineYieldsNoTokens(t *testing.T) {
	got, err := Split("    ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
