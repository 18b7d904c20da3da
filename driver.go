package parexis

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ChannelID is an opaque, stable identifier for a channel, unique within a
// Driver instance for the channel's lifetime. It is issued from a monotonic
// counter rather than derived from an object pointer, so identity never
// depends on allocation policy.
type ChannelID uint64

// readEvent is what a channel's reader goroutine posts to the driver's
// fan-in events channel: either one byte, or a terminal read error.
type readEvent struct {
	id  ChannelID
	b   byte
	err error
}

// entry pairs a registered channel with the machinery driving its reads.
type entry struct {
	id      ChannelID
	channel *Channel
	stop    chan struct{}
	stopped chan struct{}
}

// Driver owns a set of channels and hosts the single-threaded event loop
// that multiplexes them. All state mutation happens inside the loop
// goroutine; per-channel reader goroutines only ever produce bytes onto
// the shared events channel, they never touch channel state directly.
//
// Rather than a single process calling select(2) over every descriptor
// each turn, one goroutine per channel performs exactly one blocking
// GetByte at a time, preserving byte-granular interleaving, and hands each
// byte to the loop via a channel; one loop turn applies every byte already
// queued, so a channel may contribute several bytes per turn — the same
// fan-in shape as a
// reader-goroutine-plus-error-channel pair, generalized from one stream to N.
type Driver struct {
	printer Printer
	param   DriverParam

	mu      sync.Mutex
	entries []*entry
	nextID  ChannelID
	events  chan readEvent
	log     *logrus.Entry
}

// DriverParam defines optional parameters for a Driver: a struct of
// overridable knobs with defaults filled in by validateDriverParams, rather than
// functional options.
type DriverParam struct {
	// EventsBufSize sizes the fan-in events channel; a larger buffer lets
	// more reader goroutines have a byte in flight before blocking.
	EventsBufSize int
	// ReadBackoff is how long a channel's reader goroutine sleeps after a
	// transient (would-block/interrupted/end-of-stream) read before retrying.
	ReadBackoff time.Duration
}

const (
	defaultEventsBufSize = 64
	defaultReadBackoff   = 2 * time.Millisecond
)

// validateDriverParams fills zero-valued fields with defaults.
func validateDriverParams(p *DriverParam) {
	if p.EventsBufSize <= 0 {
		p.EventsBufSize = defaultEventsBufSize
	}
	if p.ReadBackoff <= 0 {
		p.ReadBackoff = defaultReadBackoff
	}
}

// NewDriver constructs a Driver with default parameters that reports
// lifecycle and match events to printer.
func NewDriver(printer Printer) *Driver {
	return NewDriverWithParam(printer, DriverParam{})
}

// NewDriverWithParam constructs a Driver with explicit parameters.
func NewDriverWithParam(printer Printer, param DriverParam) *Driver {
	validateDriverParams(&param)
	return &Driver{
		printer: printer,
		param:   param,
		events:  make(chan readEvent, param.EventsBufSize),
		log:     logrus.WithField("component", "driver"),
	}
}

// AddChannel registers ch, starts its reader goroutine, and notifies the
// printer.
func (d *Driver) AddChannel(ch *Channel) ChannelID {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	ent := &entry{id: id, channel: ch, stop: make(chan struct{}), stopped: make(chan struct{})}
	d.entries = append(d.entries, ent)
	d.mu.Unlock()

	d.printer.AddChannel(id, ch)
	go d.readLoop(ent)
	return id
}

// RemoveChannel finds ch by id, notifies the printer, stops its reader
// goroutine, and drops it.
func (d *Driver) RemoveChannel(id ChannelID) {
	d.mu.Lock()
	idx := d.indexOf(id)
	if idx < 0 {
		d.mu.Unlock()
		return
	}
	ent := d.entries[idx]
	d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
	d.mu.Unlock()

	d.printer.RemoveChannel(id, ent.channel)
	close(ent.stop)
	<-ent.stopped
	_ = ent.channel.IO().Close()
}

func (d *Driver) indexOf(id ChannelID) int {
	for i, e := range d.entries {
		if e.id == id {
			return i
		}
	}
	return -1
}

// readLoop performs one GetByte at a time. A real byte, or a fatal error, is
// posted to d.events; would-block/interrupted/end-of-stream are swallowed
// right here with a brief backoff — no byte is appended for them — so the
// main loop never has to filter noise out of its readiness channel.
func (d *Driver) readLoop(ent *entry) {
	defer close(ent.stopped)
	io := ent.channel.IO()
	for {
		select {
		case <-ent.stop:
			return
		default:
		}

		b, err := io.GetByte()
		switch {
		case err == nil:
			select {
			case d.events <- readEvent{id: ent.id, b: b}:
			case <-ent.stop:
				return
			}
		case isFatal(err):
			select {
			case d.events <- readEvent{id: ent.id, err: err}:
			case <-ent.stop:
			}
			return
		default:
			// transient: would-block, interrupted, or end-of-stream
			select {
			case <-ent.stop:
				return
			case <-time.After(d.param.ReadBackoff):
			}
		}
	}
}

// WaitForAny runs the event loop until exactly one expectation is
// satisfied, returning its channel id, or raises ErrTimeout.
func (d *Driver) WaitForAny() (ChannelID, error) {
	// Precondition: nothing to wait for.
	if !d.anyHaveExpectations() {
		return 0, ErrTimeout
	}

	// Eager check for already-buffered matches before waiting on anything.
	if id, ok, err := d.checkAll(); err != nil {
		return 0, err
	} else if ok {
		d.printer.Flush()
		return id, nil
	}

	for {
		// Next-deadline selection: only the head of each group's chain is
		// time-gated, since that's the only stage actually being waited on.
		deadline, headID, headExp, ok := d.nextDeadline()
		if !ok {
			return 0, ErrTimeout
		}

		// Readiness wait.
		left := time.Until(deadline)
		if left < 0 {
			left = 0
		}
		d.log.WithFields(logrus.Fields{"left": left}).Debug("waiting for readiness")

		var timer *time.Timer
		if left > 0 {
			timer = time.NewTimer(left)
		} else {
			timer = time.NewTimer(0)
		}

		select {
		case ev := <-d.events:
			timer.Stop()
			if ev.err != nil {
				return 0, ev.err // a fatal IO error propagates straight out of the wait
			}
			var touched []ChannelID
			touched = append(touched, d.applyEvent(ev))

			// Drain any further already-ready events without blocking, to
			// keep match-attempt cost proportional to bytes actually
			// delivered this turn while still draining a ready burst.
			draining := true
			for draining {
				select {
				case ev2 := <-d.events:
					if ev2.err != nil {
						return 0, ev2.err
					}
					touched = append(touched, d.applyEvent(ev2))
				default:
					draining = false
				}
			}

			// Match pass over channels that produced a byte.
			if id, ok, err := d.checkSubset(touched); err != nil {
				return 0, err
			} else if ok {
				d.printer.Flush()
				return id, nil
			}
			d.printer.Flush()
			// loop back and recompute the next deadline

		case <-timer.C:
			d.log.WithFields(logrus.Fields{"channel": headID, "pattern": headExp.Pattern}).
				Debug("expectation timed out")
			d.printer.TimedOut(headID, headExp.Pattern, headExp.Timeout)
			return 0, ErrTimeout
		}
	}
}

// applyEvent folds one real byte into channel state and the printer, and
// returns the touched channel id (0 if the channel was removed concurrently).
func (d *Driver) applyEvent(ev readEvent) ChannelID {
	d.mu.Lock()
	idx := d.indexOf(ev.id)
	if idx < 0 {
		d.mu.Unlock()
		return 0
	}
	ch := d.entries[idx].channel
	d.mu.Unlock()

	ch.appendByte(ev.b)
	d.printer.Out(ev.id, ev.b)
	return ev.id
}

// checkAll runs expectationMet over every channel, in registration order.
func (d *Driver) checkAll() (ChannelID, bool, error) {
	d.mu.Lock()
	entries := append([]*entry(nil), d.entries...)
	d.mu.Unlock()

	for _, e := range entries {
		ok, err := e.channel.expectationMet()
		if err != nil {
			return 0, false, err
		}
		if ok {
			d.printer.Matched(e.id, e.channel.LastMatch())
			return e.id, true, nil
		}
	}
	return 0, false, nil
}

// checkSubset runs expectationMet only over the given channel ids, in the
// order they were touched this turn.
func (d *Driver) checkSubset(ids []ChannelID) (ChannelID, bool, error) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		d.mu.Lock()
		idx := d.indexOf(id)
		var ch *Channel
		if idx >= 0 {
			ch = d.entries[idx].channel
		}
		d.mu.Unlock()
		if ch == nil {
			continue
		}

		ok, err := ch.expectationMet()
		if err != nil {
			return 0, false, err
		}
		if ok {
			d.printer.Matched(id, ch.LastMatch())
			return id, true, nil
		}
	}
	return 0, false, nil
}

// anyHaveExpectations reports whether any channel has a pending group.
func (d *Driver) anyHaveExpectations() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.channel.hasExpectations() {
			return true
		}
	}
	return false
}

// nextDeadline computes the minimum head-of-group deadline across every
// channel. Only the head of each group is time-gated — a later stage of a
// chain is considered only once it becomes the head, and its deadline is
// still the one fixed when it was added, not restarted at that point.
func (d *Driver) nextDeadline() (time.Time, ChannelID, *Expectation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		found    bool
		best     time.Time
		bestID   ChannelID
		bestExp  *Expectation
	)
	for _, e := range d.entries {
		for _, g := range e.channel.groups {
			if len(g) == 0 {
				continue
			}
			head := g[0]
			if !found || head.Deadline.Before(best) {
				found = true
				best = head.Deadline
				bestID = e.id
				bestExp = head
			}
		}
	}
	return best, bestID, bestExp, found
}

// WaitForOne repeatedly invokes WaitForAny until it returns id or no
// expectations remain anywhere.
func (d *Driver) WaitForOne(id ChannelID) error {
	for {
		got, err := d.WaitForAny()
		if err != nil {
			return err
		}
		if got == id {
			return nil
		}
	}
}

// WaitForAll repeatedly invokes WaitForAny until no expectations remain
// across any channel.
func (d *Driver) WaitForAll() error {
	for d.anyHaveExpectations() {
		if _, err := d.WaitForAny(); err != nil {
			return err
		}
	}
	return nil
}

// Channel looks up a registered channel by id.
func (d *Driver) Channel(id ChannelID) (*Channel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	return d.entries[idx].channel, true
}

// isFatal reports whether err should stop a channel's reader goroutine
// entirely, as opposed to being swallowed and retried. End-of-stream is
// treated as transient, not fatal, so the channel is not torn down on EOF.
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrWouldBlock) &&
		!errors.Is(err, ErrInterrupted) &&
		!errors.Is(err, ErrEndOfStream)
}
