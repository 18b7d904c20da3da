package parexis

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterleavedPrinterFlushesOnlyCompleteLines(t *testing.T) {
	var out bytes.Buffer
	p := NewInterleavedPrinter(&out)
	ch := NewChannel("dev0", &fakeIO{})
	p.AddChannel(1, ch)

	for _, b := range []byte("partial") {
		p.Out(1, b)
	}
	p.Flush()
	assert.Empty(t, out.String())

	p.Out(1, '\n')
	p.Flush()
	require.Contains(t, out.String(), "dev0> partial\n")
}

func TestInterleavedPrinterMatchedHighlightsMostRecentOccurrence(t *testing.T) {
	var out bytes.Buffer
	p := NewInterleavedPrinter(&out)
	ch := NewChannel("dev0", &fakeIO{})
	p.AddChannel(1, ch)

	for _, b := range []byte("OK OK\n") {
		p.Out(1, b)
	}
	p.Matched(1, "OK")
	p.Flush()

	line := out.String()
	assert.Contains(t, line, ansiBlue+"OK"+ansiReset)
	// only the last occurrence is highlighted
	assert.Equal(t, 1, strings.Count(line, ansiBlue))
}

func TestInterleavedPrinterTimedOutWritesRedMessage(t *testing.T) {
	var out bytes.Buffer
	p := NewInterleavedPrinter(&out)
	ch := NewChannel("dev0", &fakeIO{})
	p.AddChannel(1, ch)

	p.TimedOut(1, "foo", 5*time.Second)
	p.Flush()

	assert.Contains(t, out.String(), ansiRed)
	assert.Contains(t, out.String(), "Timed out after 5s waiting for 'foo'")
}

func TestInterleavedPrinterIgnoresEventsForUnknownChannel(t *testing.T) {
	var out bytes.Buffer
	p := NewInterleavedPrinter(&out)

	// no AddChannel call for id 99 — must not panic
	p.Out(99, 'x')
	p.Matched(99, "x")
	p.TimedOut(99, "x", time.Second)
	p.Flush()
	assert.Empty(t, out.String())
}

func TestInterleavedPrinterRemoveChannelIsNoOp(t *testing.T) {
	var out bytes.Buffer
	p := NewInterleavedPrinter(&out)
	ch := NewChannel("dev0", &fakeIO{})
	p.AddChannel(1, ch)

	p.RemoveChannel(1, ch)
	require.Len(t, p.bufs, 1)
}
