package exporter

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can drive the poll loop via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for polling and backoff. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
