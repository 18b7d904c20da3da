package parexis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpectationSetsAbsoluteDeadline(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := newExpectation("foo", 5*time.Second, now)
	assert.Equal(t, now.Add(5*time.Second), e.Deadline)
	assert.Equal(t, "foo", e.Pattern)
}

func TestExpectationCompileIsLazyAndCached(t *testing.T) {
	e := newExpectation("^abc$", time.Second, time.Now())
	assert.Nil(t, e.compiled)

	re, err := e.compile()
	require.NoError(t, err)
	require.NotNil(t, re)
	assert.Same(t, re, e.compiled)

	re2, err := e.compile()
	require.NoError(t, err)
	assert.Same(t, re, re2)
}

func TestExpectationCompilePrefixesMultilineFlag(t *testing.T) {
	e := newExpectation("^bar$", time.Second, time.Now())
	re, err := e.compile()
	require.NoError(t, err)
	assert.True(t, re.MatchString("foo\nbar\nbaz"))
}

func TestExpectationCompileRejectsInvalidPattern(t *testing.T) {
	e := newExpectation("(unterminated", time.Second, time.Now())
	_, err := e.compile()
	assert.Error(t, err)
}

func TestExpectationReleaseClearsCompiledForm(t *testing.T) {
	e := newExpectation("x", time.Second, time.Now())
	_, err := e.compile()
	require.NoError(t, err)
	require.NotNil(t, e.compiled)

	e.release()
	assert.Nil(t, e.compiled)
}
