// Package signalintake funnels asynchronous OS signals into a single-slot
// latch. Nothing in the signal path does real work beyond recording the
// signal kind — the dispatcher is the only thing that acts on it, and
// always on its own thread of control.
package signalintake

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// Kind identifies a recognized control signal.
type Kind int32

const (
	None Kind = iota
	Term
	Quit
	Hup
	Other
)

// Latch is a single-slot store for the most recently received signal.
// Bursts collapse: only the latest signal is retained until the
// dispatcher clears it.
type Latch struct {
	last atomic.Int32
	// wake is signaled (non-blocking) every time a new signal lands, so a
	// blocked dispatcher wait can observe it promptly instead of only on
	// its next poll tick.
	wake chan struct{}
}

// NewLatch creates an empty Latch.
func NewLatch() *Latch {
	return &Latch{wake: make(chan struct{}, 1)}
}

// Peek returns the latched signal without clearing it.
func (l *Latch) Peek() Kind {
	return Kind(l.last.Load())
}

// Clear resets the latch to None. Called by the dispatcher after
// processing a signal.
func (l *Latch) Clear() {
	l.last.Store(int32(None))
}

// Wake returns a channel that receives a value shortly after any signal is
// latched, for use in a select alongside other wait conditions.
func (l *Latch) Wake() <-chan struct{} {
	return l.wake
}

func (l *Latch) set(k Kind) {
	l.last.Store(int32(k))
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Intake owns the OS signal channel and the Latch it feeds.
type Intake struct {
	latch *Latch
	ch    chan os.Signal
	kinds map[os.Signal]Kind
}

// New installs handlers for the given OS signals, mapped to their Kind,
// and returns an Intake whose Latch the dispatcher polls. Call Stop to
// uninstall the handlers during teardown.
func New(kinds map[os.Signal]Kind) *Intake {
	sigs := make([]os.Signal, 0, len(kinds))
	for s := range kinds {
		sigs = append(sigs, s)
	}
	ch := make(chan os.Signal, len(sigs)*2+1)
	signal.Notify(ch, sigs...)

	in := &Intake{
		latch: NewLatch(),
		ch:    ch,
		kinds: kinds,
	}
	go in.loop()
	return in
}

func (in *Intake) loop() {
	for sig := range in.ch {
		kind, ok := in.kinds[sig]
		if !ok {
			kind = Other
		}
		in.latch.set(kind)
	}
}

// Latch returns the Intake's signal latch.
func (in *Intake) Latch() *Latch { return in.latch }

// Stop uninstalls the signal handlers and drains the channel.
func (in *Intake) Stop() {
	signal.Stop(in.ch)
	close(in.ch)
}
