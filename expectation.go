package parexis

import (
	"regexp"
	"time"
)

// Mode selects how a new expectation joins a channel's expectation groups.
type Mode int

const (
	// Parallel starts a new alternative chain.
	Parallel Mode = iota
	// Serial extends the current chain's last group.
	Serial
)

// Expectation is a single (pattern, timeout, deadline) tuple awaiting
// satisfaction. Deadline is fixed at creation and never decremented;
// elapsed time is always measured against it directly, never against a
// stored "time left" that drifts under repeated partial waits.
type Expectation struct {
	Pattern  string
	Timeout  time.Duration
	Deadline time.Time

	compiled *regexp.Regexp // lazy; released when the expectation is consumed
}

// newExpectation records deadline = now + timeout at creation time.
func newExpectation(pattern string, timeout time.Duration, now time.Time) *Expectation {
	return &Expectation{
		Pattern:  pattern,
		Timeout:  timeout,
		Deadline: now.Add(timeout),
	}
}

// compile lazily compiles the pattern, caching the result. The pattern is
// compiled in multiline mode, so "^"/"$" match at embedded line boundaries
// rather than only at the very start/end of the buffer; Channel's match
// filtering (see firstNonEmptyMatch) additionally guards against "$"
// matching the buffer's bare end before its line has actually finished.
func (e *Expectation) compile() (*regexp.Regexp, error) {
	if e.compiled != nil {
		return e.compiled, nil
	}
	re, err := regexp.Compile("(?m)" + e.Pattern)
	if err != nil {
		return nil, err
	}
	e.compiled = re
	return re, nil
}

// release drops the compiled form once the expectation is consumed.
func (e *Expectation) release() {
	e.compiled = nil
}

// group is a non-empty ordered sequence of expectations representing one
// serial chain. It is only transiently empty inside expectationMet, which
// tears down the whole channel's expectations as soon as that happens.
type group []*Expectation
