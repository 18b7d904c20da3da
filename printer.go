package parexis

import "time"

// Printer receives lifecycle and byte events per channel, plus match and
// timeout notices. The driver calls these but never formats output itself
// — that's entirely the printer's concern.
type Printer interface {
	AddChannel(id ChannelID, ch *Channel)
	RemoveChannel(id ChannelID, ch *Channel)

	// Out is called once per byte delivered to a channel.
	Out(id ChannelID, b byte)

	// Matched is called on a successful expectation match.
	Matched(id ChannelID, text string)

	// TimedOut is called when the head-of-deadline expectation expires.
	TimedOut(id ChannelID, pattern string, timeout time.Duration)

	// Flush flushes any pending output to the sink. The driver calls this
	// after every match and after every wait iteration.
	Flush()
}

// NopPrinter discards every event. Useful for tests and for embedding the
// driver in a context that does not want console output.
type NopPrinter struct{}

func (NopPrinter) AddChannel(ChannelID, *Channel)           {}
func (NopPrinter) RemoveChannel(ChannelID, *Channel)        {}
func (NopPrinter) Out(ChannelID, byte)                      {}
func (NopPrinter) Matched(ChannelID, string)                {}
func (NopPrinter) TimedOut(ChannelID, string, time.Duration) {}
func (NopPrinter) Flush()                                   {}
