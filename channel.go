package parexis

import (
	"fmt"
	"regexp"
	"time"
)

// Channel owns an IO handle, a receive buffer, and the ordered expectation
// groups that define its pending match chains.
type Channel struct {
	name string
	io   IOHandle

	buffer    []byte
	groups    []group
	lastMatch string
}

// NewChannel wraps io under name. Registration with a Driver happens
// separately via Driver.AddChannel.
func NewChannel(name string, io IOHandle) *Channel {
	return &Channel{name: name, io: io}
}

// Name is the channel's immutable display string.
func (c *Channel) Name() string { return c.name }

// LastMatch is the last matched substring, empty until the first match.
func (c *Channel) LastMatch() string { return c.lastMatch }

// IO exposes the underlying handle, e.g. for Close on removal.
func (c *Channel) IO() IOHandle { return c.io }

// AddExpect appends a new expectation:
//   - Parallel, or no groups yet: start a new group with just this expectation.
//   - Serial with existing groups: append to the last (active) group.
//
// deadline is fixed at now+timeout; compilation is deferred.
func (c *Channel) AddExpect(pattern string, timeout time.Duration, mode Mode, now time.Time) {
	exp := newExpectation(pattern, timeout, now)
	if mode == Parallel || len(c.groups) == 0 {
		c.groups = append(c.groups, group{exp})
		return
	}
	last := len(c.groups) - 1
	c.groups[last] = append(c.groups[last], exp)
}

// ClearExpects drops all groups. Idempotent.
func (c *Channel) ClearExpects() {
	for _, g := range c.groups {
		for _, e := range g {
			e.release()
		}
	}
	c.groups = nil
}

// Write forwards bytes to the IO handle.
func (c *Channel) Write(p []byte) (int, error) {
	return c.io.Write(p)
}

// headDeadlines returns the deadline of the current (first) expectation of
// each group — the only "live" stage of each chain for deadline-tracking
// purposes.
func (c *Channel) headDeadlines() []time.Time {
	deadlines := make([]time.Time, 0, len(c.groups))
	for _, g := range c.groups {
		if len(g) > 0 {
			deadlines = append(deadlines, g[0].Deadline)
		}
	}
	return deadlines
}

// hasExpectations reports whether any group is non-empty.
func (c *Channel) hasExpectations() bool {
	for _, g := range c.groups {
		if len(g) > 0 {
			return true
		}
	}
	return false
}

// appendByte appends one byte to the receive buffer.
func (c *Channel) appendByte(b byte) {
	c.buffer = append(c.buffer, b)
}

// expectationMet runs the match algorithm: group-major, expectation-minor,
// first-match-wins. On success it truncates buffer, records lastMatch,
// removes the matched expectation, and — if that leaves any group empty —
// clears the whole channel's expectations (chain completion: one chain
// finishing abandons every other pending chain). Returns (false, nil) if
// nothing matched, or (false, ErrBadRegex) if a pattern failed to compile.
func (c *Channel) expectationMet() (bool, error) {
	for gi, g := range c.groups {
		for ei, e := range g {
			re, err := e.compile()
			if err != nil {
				return false, fmt.Errorf("%w: %q: %v", ErrBadRegex, e.Pattern, err)
			}

			loc := firstNonEmptyMatch(re, c.buffer)
			if loc == nil {
				continue
			}

			c.lastMatch = string(c.buffer[loc[0]:loc[1]])
			c.buffer = c.buffer[loc[1]:]
			e.release()
			c.groups[gi] = append(g[:ei:ei], g[ei+1:]...)

			c.collapseIfChainComplete()
			return true, nil
		}
	}
	return false, nil
}

// eotSentinel is appended to a copy of the buffer before matching so that
// Go's "$" never sees the slice's real end as the logical end of the
// stream. Go's regexp engine has no equivalent of PCRE's NOTEOL exec
// flag — it always treats the end of the matched slice as a valid place
// for "$"/"\z" to match — which would let an end-anchored pattern like
// "foo$" fire against a buffer that currently holds exactly "foo" even
// though the line hasn't actually ended yet and more bytes for it may
// still be in flight. Appending one non-newline byte means "$" can only
// match before an already-embedded newline, never at the buffer's true
// end, which is the behavior a streaming match needs.
const eotSentinel = 0x00

// firstNonEmptyMatch finds the earliest match in buf, skipping empty
// matches and matches that only succeeded by consuming the end-of-text
// sentinel rather than real buffered data.
func firstNonEmptyMatch(re *regexp.Regexp, buf []byte) []int {
	probe := make([]byte, len(buf)+1)
	copy(probe, buf)
	probe[len(buf)] = eotSentinel

	for _, loc := range re.FindAllIndex(probe, -1) {
		if loc[0] == loc[1] {
			continue
		}
		if loc[1] > len(buf) {
			continue
		}
		return loc
	}
	return nil
}

// collapseIfChainComplete clears all expectations if any group became
// empty as a result of the most recent match: that chain completed, so
// alternative chains still pending are abandoned.
func (c *Channel) collapseIfChainComplete() {
	for _, g := range c.groups {
		if len(g) == 0 {
			c.ClearExpects()
			return
		}
	}
}
